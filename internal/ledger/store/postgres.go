package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // postgres driver

	"cdcvoucher/internal/ledger/models"
)

// Postgres persists ledger lines in PostgreSQL. The table is append-only by
// construction: the store issues INSERT and SELECT only.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the ledger table when missing. id preserves insertion
// order for ListByMerchant and All.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_lines (
			id             BIGSERIAL PRIMARY KEY,
			transaction_id TEXT        NOT NULL,
			household_id   TEXT        NOT NULL,
			merchant_id    TEXT        NOT NULL,
			redeemed_at    TIMESTAMPTZ NOT NULL,
			voucher_code   TEXT        NOT NULL,
			denomination   INTEGER     NOT NULL,
			total          INTEGER     NOT NULL,
			status         TEXT        NOT NULL,
			remark         TEXT        NOT NULL
		);
		CREATE INDEX IF NOT EXISTS ledger_lines_merchant_idx ON ledger_lines (merchant_id, id);
	`)
	if err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// Append implements Store. All lines of one transaction commit atomically.
func (p *Postgres) Append(ctx context.Context, lines []models.Line) error {
	if len(lines) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger append: %w", err)
	}
	const query = `
		INSERT INTO ledger_lines
			(transaction_id, household_id, merchant_id, redeemed_at, voucher_code, denomination, total, status, remark)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, line := range lines {
		if _, err := tx.ExecContext(ctx, query,
			line.TransactionID, line.HouseholdID, line.MerchantID, line.RedeemedAt,
			line.VoucherCode, line.Denomination, line.Total, line.Status, line.Remark,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("append ledger line: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger append: %w", err)
	}
	return nil
}

// ListByMerchant implements Store.
func (p *Postgres) ListByMerchant(ctx context.Context, merchantID string) ([]models.Line, error) {
	const query = `
		SELECT transaction_id, household_id, merchant_id, redeemed_at, voucher_code, denomination, total, status, remark
		FROM ledger_lines WHERE merchant_id = $1 ORDER BY id
	`
	return p.query(ctx, query, merchantID)
}

// All implements Store.
func (p *Postgres) All(ctx context.Context) ([]models.Line, error) {
	const query = `
		SELECT transaction_id, household_id, merchant_id, redeemed_at, voucher_code, denomination, total, status, remark
		FROM ledger_lines ORDER BY id
	`
	return p.query(ctx, query)
}

// TransactionIDs implements Store.
func (p *Postgres) TransactionIDs(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT DISTINCT transaction_id FROM ledger_lines`)
	if err != nil {
		return nil, fmt.Errorf("list transaction ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan transaction id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction ids: %w", err)
	}
	return ids, nil
}

func (p *Postgres) query(ctx context.Context, query string, args ...any) ([]models.Line, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var lines []models.Line
	for rows.Next() {
		var line models.Line
		if err := rows.Scan(
			&line.TransactionID, &line.HouseholdID, &line.MerchantID, &line.RedeemedAt,
			&line.VoucherCode, &line.Denomination, &line.Total, &line.Status, &line.Remark,
		); err != nil {
			return nil, fmt.Errorf("scan ledger line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return lines, nil
}
