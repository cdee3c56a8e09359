package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	activationstore "cdcvoucher/internal/activation/store"
	householdstore "cdcvoucher/internal/household/store"
	dErrors "cdcvoucher/pkg/domain-errors"
	"cdcvoucher/pkg/requestcontext"
)

var testCounts = map[int]int{2: 80, 5: 32, 10: 45}

func newService(t *testing.T) (*Service, *activationstore.InMemory) {
	t.Helper()
	households := householdstore.NewInMemory(testCounts)
	require.NoError(t, households.Update(context.Background(), func(txn householdstore.Txn) error {
		if err := txn.Register("S1234567A", "H0001"); err != nil {
			return err
		}
		return txn.InitPool("H0001")
	}))
	activations := activationstore.NewInMemory()
	return New(activations, households), activations
}

func TestActivateBindsBarcodeToBundle(t *testing.T) {
	svc, activations := newService(t)
	frozen := time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local)
	ctx := requestcontext.WithTime(context.Background(), frozen)

	record, err := svc.Activate(ctx, "H0001", []string{
		"V02-0001-H0001", " V05-0001-H0001 ", "V02-0001-H0001", // duplicate + whitespace
	})
	require.NoError(t, err)

	assert.True(t, ValidBarcode(record.Barcode), "barcode %s should carry a valid check digit", record.Barcode)
	assert.Equal(t, []string{"V02-0001-H0001", "V05-0001-H0001"}, record.VoucherCodes)
	assert.Equal(t, frozen, record.ActivatedAt)

	stored, err := activations.Find(ctx, record.Barcode)
	require.NoError(t, err)
	assert.Equal(t, record.VoucherCodes, stored.VoucherCodes)
}

func TestActivateRejections(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		householdID string
		codes       []string
		wantCode    dErrors.Code
	}{
		{"empty bundle", "H0001", nil, dErrors.CodeEmptyBundle},
		{"whitespace only", "H0001", []string{"  "}, dErrors.CodeEmptyBundle},
		{"unknown household", "H9999", []string{"V02-0001-H9999"}, dErrors.CodeNotFound},
		{"malformed code", "H0001", []string{"garbage"}, dErrors.CodeFormat},
		{"foreign household code", "H0001", []string{"V02-0001-H0002"}, dErrors.CodeValidation},
		{"unknown denomination", "H0001", []string{"V03-0001-H0001"}, dErrors.CodeValidation},
		{"index beyond pool", "H0001", []string{"V02-0081-H0001"}, dErrors.CodeIndexOutOfRange},
		{"index zero", "H0001", []string{"V02-0000-H0001"}, dErrors.CodeIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Activate(ctx, tt.householdID, tt.codes)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tt.wantCode), "want %s, got %v", tt.wantCode, err)
		})
	}
}

func TestFindUnknownBarcode(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Find(context.Background(), "0000000000000")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestNewBarcode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		barcode, err := NewBarcode()
		require.NoError(t, err)
		assert.Len(t, barcode, 13)
		assert.True(t, ValidBarcode(barcode), "barcode %s", barcode)
		seen[barcode] = struct{}{}
	}
	assert.Greater(t, len(seen), 90, "barcodes should be effectively unique")
}

func TestValidBarcode(t *testing.T) {
	assert.True(t, ValidBarcode("4006381333931")) // known-good EAN-13
	assert.False(t, ValidBarcode("4006381333932"))
	assert.False(t, ValidBarcode("123"))
	assert.False(t, ValidBarcode("400638133393X"))
}
