package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	activationmodels "cdcvoucher/internal/activation/models"
	activationstore "cdcvoucher/internal/activation/store"
	householdstore "cdcvoucher/internal/household/store"
	"cdcvoucher/internal/ledger/models"
	ledgerstore "cdcvoucher/internal/ledger/store"
	dErrors "cdcvoucher/pkg/domain-errors"
	"cdcvoucher/pkg/requestcontext"
)

var testCounts = map[int]int{2: 80, 5: 32, 10: 45}

type fixture struct {
	svc         *Service
	activations *activationstore.InMemory
	households  *householdstore.InMemory
	ledger      *ledgerstore.InMemory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	households := householdstore.NewInMemory(testCounts)
	require.NoError(t, households.Update(context.Background(), func(txn householdstore.Txn) error {
		if err := txn.Register("S1234567A", "H0001"); err != nil {
			return err
		}
		return txn.InitPool("H0001")
	}))
	activations := activationstore.NewInMemory()
	ledger := ledgerstore.NewInMemory()
	return &fixture{
		svc:         New(activations, households, ledger),
		activations: activations,
		households:  households,
		ledger:      ledger,
	}
}

func TestRedeemCodesWritesOneLinePerVoucher(t *testing.T) {
	f := newFixture(t)
	frozen := time.Date(2025, 6, 1, 14, 30, 0, 0, time.Local)
	ctx := requestcontext.WithTime(context.Background(), frozen)

	receipt, err := f.svc.RedeemCodes(ctx, []string{
		"V02-0001-H0001", "V05-0001-H0001", "V10-0001-H0001",
	}, "M001")
	require.NoError(t, err)

	assert.Equal(t, "TX00001", receipt.TransactionID)
	assert.Equal(t, "H0001", receipt.HouseholdID)
	assert.Equal(t, 17, receipt.Total)
	require.Len(t, receipt.Lines, 3)

	for _, line := range receipt.Lines {
		assert.Equal(t, "TX00001", line.TransactionID)
		assert.Equal(t, "M001", line.MerchantID)
		assert.Equal(t, 17, line.Total)
		assert.Equal(t, models.StatusCompleted, line.Status)
		assert.Equal(t, frozen, line.RedeemedAt)
	}
	assert.Equal(t, "1", receipt.Lines[0].Remark)
	assert.Equal(t, "2", receipt.Lines[1].Remark)
	assert.Equal(t, models.FinalRemark, receipt.Lines[2].Remark)

	pool, err := f.households.Pool(ctx, "H0001")
	require.NoError(t, err)
	remaining := pool.Remaining()
	assert.Equal(t, 79, remaining[2])
	assert.Equal(t, 31, remaining[5])
	assert.Equal(t, 44, remaining[10])
}

func TestRedeemSameVoucherTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.svc.RedeemCodes(ctx, []string{"V02-0001-H0001"}, "M001")
	require.NoError(t, err)
	assert.Equal(t, "TX00001", receipt.TransactionID)
	assert.Equal(t, 2, receipt.Total)
	assert.Equal(t, models.FinalRemark, receipt.Lines[0].Remark)

	_, err = f.svc.RedeemCodes(ctx, []string{"V02-0001-H0001"}, "M002")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyRedeemed))

	lines, err := f.ledger.All(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 1, "the rejected attempt must not reach the ledger")
}

func TestRedeemBundleWithOneUsedVoucherChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RedeemCodes(ctx, []string{"V05-0002-H0001"}, "M001")
	require.NoError(t, err)

	_, err = f.svc.RedeemCodes(ctx, []string{
		"V02-0001-H0001", "V05-0002-H0001", "V10-0001-H0001",
	}, "M001")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyRedeemed))

	pool, err := f.households.Pool(ctx, "H0001")
	require.NoError(t, err)
	remaining := pool.Remaining()
	assert.Equal(t, 80, remaining[2], "fresh vouchers in a rejected bundle stay unused")
	assert.Equal(t, 45, remaining[10])

	lines, err := f.ledger.All(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestRedeemRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		codes    []string
		merchant string
		wantCode dErrors.Code
	}{
		{"empty bundle", nil, "M001", dErrors.CodeEmptyBundle},
		{"missing merchant", []string{"V02-0001-H0001"}, "", dErrors.CodeValidation},
		{"malformed code", []string{"not-a-code"}, "M001", dErrors.CodeFormat},
		{"mixed households", []string{"V02-0001-H0001", "V02-0001-H0002"}, "M001", dErrors.CodeValidation},
		{"index beyond pool", []string{"V02-0081-H0001"}, "M001", dErrors.CodeIndexOutOfRange},
		{"index zero", []string{"V02-0000-H0001"}, "M001", dErrors.CodeIndexOutOfRange},
		{"unknown household", []string{"V02-0001-H0042"}, "M001", dErrors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RedeemCodes(ctx, tt.codes, tt.merchant)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tt.wantCode), "want %s, got %v", tt.wantCode, err)
		})
	}

	lines, err := f.ledger.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestRedeemByBarcode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.activations.Save(ctx, activationmodels.Record{
		Barcode:      "4006381333931",
		VoucherCodes: []string{"V02-0003-H0001", "V10-0002-H0001"},
		ActivatedAt:  time.Now(),
	}))

	receipt, err := f.svc.Redeem(ctx, "4006381333931", "M001")
	require.NoError(t, err)
	assert.Equal(t, 12, receipt.Total)

	_, err = f.svc.Redeem(ctx, "4006381333931", "M001")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyRedeemed),
		"a barcode stays resolvable but its vouchers spend only once")

	_, err = f.svc.Redeem(ctx, "0000000000000", "M001")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestConcurrentOverlappingBundles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Both bundles contain V05-0001; at most one may commit.
	bundles := [][]string{
		{"V02-0001-H0001", "V05-0001-H0001"},
		{"V05-0001-H0001", "V10-0001-H0001"},
	}

	var g errgroup.Group
	errs := make([]error, len(bundles))
	for i, bundle := range bundles {
		i, bundle := i, bundle
		g.Go(func() error {
			_, errs[i] = f.svc.RedeemCodes(ctx, bundle, "M001")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyRedeemed), "got %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one overlapping bundle may commit")

	lines, err := f.ledger.All(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestPersistFailureRollsBackFlips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.households.FailNextPersist(errors.New("disk full"))

	_, err := f.svc.RedeemCodes(ctx, []string{"V02-0001-H0001", "V05-0001-H0001"}, "M001")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	pool, err := f.households.Pool(ctx, "H0001")
	require.NoError(t, err)
	remaining := pool.Remaining()
	assert.Equal(t, 80, remaining[2], "failed persist must leave no voucher marked used")
	assert.Equal(t, 32, remaining[5])

	lines, err := f.ledger.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)

	// The same bundle goes through once the store recovers.
	receipt, err := f.svc.RedeemCodes(ctx, []string{"V02-0001-H0001", "V05-0001-H0001"}, "M001")
	require.NoError(t, err)
	assert.Equal(t, "TX00001", receipt.TransactionID)
}

func TestDuplicateCodesCollapse(t *testing.T) {
	f := newFixture(t)

	receipt, err := f.svc.RedeemCodes(context.Background(), []string{
		"V02-0001-H0001", " V02-0001-H0001 ", "V02-0001-H0001",
	}, "M001")
	require.NoError(t, err)
	assert.Equal(t, 2, receipt.Total)
	assert.Len(t, receipt.Lines, 1)
}

func TestTransactionIDsAreSequential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.RedeemCodes(ctx, []string{"V02-0001-H0001"}, "M001")
	require.NoError(t, err)
	second, err := f.svc.RedeemCodes(ctx, []string{"V02-0002-H0001"}, "M002")
	require.NoError(t, err)

	assert.Equal(t, "TX00001", first.TransactionID)
	assert.Equal(t, "TX00002", second.TransactionID)
}
