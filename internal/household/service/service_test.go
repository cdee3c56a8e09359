package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdcvoucher/internal/household/store"
	dErrors "cdcvoucher/pkg/domain-errors"
)

var testCounts = map[int]int{2: 80, 5: 32, 10: 45}

func newService(t *testing.T, opts ...Option) (*Service, *store.InMemory) {
	t.Helper()
	st := store.NewInMemory(testCounts)
	return New(st, opts...), st
}

func TestRegisterAllocatesSequentialIDs(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, "s1234567a")
	require.NoError(t, err)
	assert.Equal(t, "S1234567A", first.NationalID, "normalized to upper case")
	assert.Equal(t, "H0001", first.HouseholdID)
	assert.False(t, first.AlreadyRegistered)

	second, err := svc.Register(ctx, "T7654321Z")
	require.NoError(t, err)
	assert.Equal(t, "H0002", second.HouseholdID)
}

func TestRegisterIsIdempotent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, "S1234567A")
	require.NoError(t, err)

	// Same identifier with different surrounding whitespace and case.
	again, err := svc.Register(ctx, "  s1234567a ")
	require.NoError(t, err)
	assert.Equal(t, first.HouseholdID, again.HouseholdID)
	assert.True(t, again.AlreadyRegistered)
}

func TestRegisterRejectsEmptyInput(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Register(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestRegisterAppliesConfiguredPattern(t *testing.T) {
	opt, err := WithNationalIDPattern(`^[STFG]\d{7}[A-Z]$`)
	require.NoError(t, err)
	svc, _ := newService(t, opt)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "not-a-fin")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, "NOT-A-FIN", reg.NationalID, "normalized id still echoed")
	assert.Empty(t, reg.HouseholdID)

	reg, err = svc.Register(ctx, "S1234567A")
	require.NoError(t, err)
	assert.Equal(t, "H0001", reg.HouseholdID)
}

func TestRegisterRepairsMissingPool(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	// Identity present, pool record lost.
	require.NoError(t, st.Update(ctx, func(txn store.Txn) error {
		return txn.Register("S1234567A", "H0001")
	}))

	reg, err := svc.Register(ctx, "S1234567A")
	require.NoError(t, err)
	assert.True(t, reg.AlreadyRegistered)

	pool, err := st.Pool(ctx, "H0001")
	require.NoError(t, err)
	assert.Len(t, pool[2], 80)
}

func TestConcurrentRegistrationsShareOneHousehold(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	const attempts = 16
	ids := make([]string, attempts)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg, err := svc.Register(ctx, "S1234567A")
			ids[i], errs[i] = reg.HouseholdID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "H0001", ids[i])
	}
}

func TestBalance(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "S1234567A")
	require.NoError(t, err)

	pool, err := svc.Balance(ctx, reg.HouseholdID)
	require.NoError(t, err)
	assert.Equal(t, 80*2+32*5+45*10, pool.Balance())
	assert.Equal(t, map[int]int{2: 80, 5: 32, 10: 45}, pool.Remaining())

	_, err = svc.Balance(ctx, "H9999")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
