package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgermodels "cdcvoucher/internal/ledger/models"
	ledgerstore "cdcvoucher/internal/ledger/store"
	merchantmodels "cdcvoucher/internal/merchant/models"
	merchantstore "cdcvoucher/internal/merchant/store"
)

func seedLedger(t *testing.T, ledger *ledgerstore.InMemory) {
	t.Helper()
	at := time.Date(2025, 6, 1, 14, 30, 0, 0, time.Local)
	require.NoError(t, ledger.Append(context.Background(), []ledgermodels.Line{
		{TransactionID: "TX00001", HouseholdID: "H0001", MerchantID: "M001", RedeemedAt: at,
			VoucherCode: "V02-0001-H0001", Denomination: 2, Total: 7, Status: ledgermodels.StatusCompleted, Remark: "1"},
		{TransactionID: "TX00001", HouseholdID: "H0001", MerchantID: "M001", RedeemedAt: at,
			VoucherCode: "V05-0001-H0001", Denomination: 5, Total: 7, Status: ledgermodels.StatusCompleted, Remark: ledgermodels.FinalRemark},
	}))
	require.NoError(t, ledger.Append(context.Background(), []ledgermodels.Line{
		{TransactionID: "TX00002", HouseholdID: "H0002", MerchantID: "M002", RedeemedAt: at.Add(time.Hour),
			VoucherCode: "V10-0001-H0002", Denomination: 10, Total: 10, Status: ledgermodels.StatusCompleted, Remark: ledgermodels.FinalRemark},
	}))
}

func seedMerchants(t *testing.T, merchants *merchantstore.InMemory) {
	t.Helper()
	m, err := merchantmodels.NewMerchant("M001", "Tiong Bahru Provisions", "DBS Bank Ltd", "123456789", "Tan Ah Kow")
	require.NoError(t, err)
	require.NoError(t, merchants.Append(context.Background(), m))
}

func TestMerchantStatement(t *testing.T) {
	ledger := ledgerstore.NewInMemory()
	merchants := merchantstore.NewInMemory()
	seedLedger(t, ledger)
	svc := New(ledger, merchants)

	statement, err := svc.MerchantStatement(context.Background(), "M001")
	require.NoError(t, err)
	assert.Equal(t, "M001", statement.MerchantID)
	assert.Len(t, statement.Lines, 2)
	assert.Equal(t, 7, statement.Total, "a bundle total counts once per transaction, not per line")

	empty, err := svc.MerchantStatement(context.Background(), "M999")
	require.NoError(t, err)
	assert.Empty(t, empty.Lines)
	assert.Zero(t, empty.Total)
}

func TestMasterReportJoinsMerchantAttributes(t *testing.T) {
	ledger := ledgerstore.NewInMemory()
	merchants := merchantstore.NewInMemory()
	seedLedger(t, ledger)
	seedMerchants(t, merchants)
	svc := New(ledger, merchants)

	rows, err := svc.MasterReport(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Tiong Bahru Provisions", rows[0].MerchantName)
	assert.Equal(t, "DBS Bank Ltd", rows[0].BankName)
	assert.Equal(t, "123456789", rows[0].AccountNumber)
	assert.Equal(t, "Tan Ah Kow", rows[0].AccountHolderName)

	// M002 was never registered.
	assert.Equal(t, "Unknown", rows[2].MerchantName)
	assert.Equal(t, "Unknown", rows[2].BankName)
	assert.Equal(t, "M002", rows[2].Line.MerchantID, "the line itself is kept")
}

func TestWriteStatementCSV(t *testing.T) {
	ledger := ledgerstore.NewInMemory()
	merchants := merchantstore.NewInMemory()
	seedLedger(t, ledger)
	svc := New(ledger, merchants)

	statement, err := svc.MerchantStatement(context.Background(), "M001")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteStatementCSV(&buf, statement))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(ledgerstore.Header, ","), lines[0])
	assert.Contains(t, lines[1], "TX00001")
	assert.Contains(t, lines[1], "$2.00")
	assert.Contains(t, lines[1], "20250601143000")
	assert.Contains(t, lines[2], "Final denomination used")
}

func TestWriteMasterCSV(t *testing.T) {
	ledger := ledgerstore.NewInMemory()
	merchants := merchantstore.NewInMemory()
	seedLedger(t, ledger)
	seedMerchants(t, merchants)
	svc := New(ledger, merchants)

	rows, err := svc.MasterReport(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteMasterCSV(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(MasterHeader, ","), lines[0])
	assert.Contains(t, lines[1], "Tiong Bahru Provisions")
	assert.Contains(t, lines[1], "123456789")
	assert.Contains(t, lines[3], "Unknown")
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMasterCSV(&buf, nil))
	assert.Equal(t, strings.Join(MasterHeader, ",")+"\n", buf.String())
}
