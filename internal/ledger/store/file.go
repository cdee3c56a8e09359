package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cdcvoucher/internal/ledger/models"
)

const transactionsFile = "transactions.csv"

// Header is the transactions CSV column set, unchanged from the scheme's
// original ledger so existing files keep working.
var Header = []string{
	"Transaction_ID", "Household_ID", "Merchant_ID",
	"Transaction_Date_Time", "Voucher_Code",
	"Denomination_Used", "Amount_Redeemed",
	"Payment_Status", "Remarks",
}

// File is the CSV-backed ledger. Append opens the file in append mode and
// writes one row per line; reads scan the full file. The file is created with
// its header on first use.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile constructs a CSV ledger at dir/transactions.csv.
func NewFile(dir string) *File {
	return &File{path: filepath.Join(dir, transactionsFile)}
}

// Append implements Store.
func (f *File) Append(ctx context.Context, lines []models.Line) error {
	if len(lines) == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureHeader(); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	writer := csv.NewWriter(file)
	for _, line := range lines {
		if err = writer.Write(encodeLine(line)); err != nil {
			break
		}
	}
	if err == nil {
		writer.Flush()
		err = writer.Error()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("append ledger lines: %w", err)
	}
	return nil
}

// ListByMerchant implements Store.
func (f *File) ListByMerchant(ctx context.Context, merchantID string) ([]models.Line, error) {
	all, err := f.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Line
	for _, line := range all {
		if line.MerchantID == merchantID {
			out = append(out, line)
		}
	}
	return out, nil
}

// All implements Store.
func (f *File) All(ctx context.Context) ([]models.Line, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readAll()
}

// TransactionIDs implements Store.
func (f *File) TransactionIDs(ctx context.Context) ([]string, error) {
	all, err := f.All(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(all))
	var ids []string
	for _, line := range all {
		if _, ok := seen[line.TransactionID]; !ok {
			seen[line.TransactionID] = struct{}{}
			ids = append(ids, line.TransactionID)
		}
	}
	return ids, nil
}

func (f *File) ensureHeader() error {
	_, err := os.Stat(f.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	file, err := os.Create(f.path)
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	writer := csv.NewWriter(file)
	err = writer.Write(Header)
	if err == nil {
		writer.Flush()
		err = writer.Error()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	return nil
}

func (f *File) readAll() ([]models.Line, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var lines []models.Line
	for i, row := range rows {
		if i == 0 || len(row) < len(Header) {
			continue
		}
		lines = append(lines, decodeLine(row))
	}
	return lines, nil
}

func encodeLine(line models.Line) []string {
	return []string{
		line.TransactionID,
		line.HouseholdID,
		line.MerchantID,
		line.RedeemedAt.Format(models.TimestampLayout),
		line.VoucherCode,
		models.FormatAmount(line.Denomination),
		models.FormatAmount(line.Total),
		line.Status,
		line.Remark,
	}
}

func decodeLine(row []string) models.Line {
	redeemedAt, _ := time.ParseInLocation(models.TimestampLayout, row[3], time.Local)
	return models.Line{
		TransactionID: row[0],
		HouseholdID:   row[1],
		MerchantID:    row[2],
		RedeemedAt:    redeemedAt,
		VoucherCode:   row[4],
		Denomination:  models.ParseAmount(row[5]),
		Total:         models.ParseAmount(row[6]),
		Status:        row[7],
		Remark:        row[8],
	}
}
