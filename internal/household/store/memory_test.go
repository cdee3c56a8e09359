package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"cdcvoucher/internal/household/models"
	"cdcvoucher/pkg/platform/sentinel"
)

var testCounts = map[int]int{2: 80, 5: 32, 10: 45}

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory(testCounts)
	s.ctx = context.Background()
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) register(nationalID, householdID string) {
	s.Require().NoError(s.store.Update(s.ctx, func(txn Txn) error {
		if err := txn.Register(nationalID, householdID); err != nil {
			return err
		}
		return txn.InitPool(householdID)
	}))
}

// TestIdentityMapping verifies registration and lookup of national ids.
func (s *InMemoryStoreSuite) TestIdentityMapping() {
	s.Run("registers and finds a household", func() {
		s.register("S1234567A", "H0001")

		householdID, err := s.store.FindByNationalID(s.ctx, "S1234567A")
		s.Require().NoError(err)
		s.Equal("H0001", householdID)
	})

	s.Run("returns ErrNotFound for unknown national id", func() {
		_, err := s.store.FindByNationalID(s.ctx, "S0000000X")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects double registration of the same national id", func() {
		s.register("S7654321B", "H0002")
		err := s.store.Update(s.ctx, func(txn Txn) error {
			return txn.Register("S7654321B", "H0003")
		})
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("lists households in registration order", func() {
		ids, err := s.store.Households(s.ctx)
		s.Require().NoError(err)
		s.Equal([]string{"H0001", "H0002"}, ids)
	})
}

// TestPoolLifecycle verifies pool creation and the one-way used transition.
func (s *InMemoryStoreSuite) TestPoolLifecycle() {
	s.register("S1111111C", "H0001")

	s.Run("initializes an all-unused pool with configured lengths", func() {
		pool, err := s.store.Pool(s.ctx, "H0001")
		s.Require().NoError(err)
		s.Len(pool[2], 80)
		s.Len(pool[5], 32)
		s.Len(pool[10], 45)
		s.Equal(80*2+32*5+45*10, pool.Balance())
	})

	s.Run("rejects a second pool for the same household", func() {
		err := s.store.Update(s.ctx, func(txn Txn) error {
			return txn.InitPool("H0001")
		})
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("bounds-checks SetUsed at the pool length", func() {
		err := s.store.Update(s.ctx, func(txn Txn) error {
			return txn.SetUsed("H0001", 2, 80)
		})
		s.Require().ErrorIs(err, sentinel.ErrOutOfRange)

		s.Require().NoError(s.store.Update(s.ctx, func(txn Txn) error {
			return txn.SetUsed("H0001", 2, 79)
		}))

		pool, err := s.store.Pool(s.ctx, "H0001")
		s.Require().NoError(err)
		s.Equal(models.StateUsed, pool[2][79])
	})

	s.Run("rejects flipping a used position again", func() {
		err := s.store.Update(s.ctx, func(txn Txn) error {
			return txn.SetUsed("H0001", 2, 79)
		})
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

		s.Require().NoError(s.store.Update(s.ctx, func(txn Txn) error {
			return txn.SetUnusedForRollback("H0001", 2, 79)
		}))
	})

	s.Run("rejects negative index", func() {
		err := s.store.Update(s.ctx, func(txn Txn) error {
			return txn.SetUsed("H0001", 2, -1)
		})
		s.Require().ErrorIs(err, sentinel.ErrOutOfRange)
	})

	s.Run("rejects unknown denomination", func() {
		err := s.store.Update(s.ctx, func(txn Txn) error {
			return txn.SetUsed("H0001", 7, 0)
		})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("hands out copies, not backing slices", func() {
		pool, err := s.store.Pool(s.ctx, "H0001")
		s.Require().NoError(err)
		pool[5][0] = models.StateUsed

		fresh, err := s.store.Pool(s.ctx, "H0001")
		s.Require().NoError(err)
		s.Equal(models.StateUnused, fresh[5][0])
	})
}

// TestEnsureAllInitialized verifies repair of a missing pool record.
func (s *InMemoryStoreSuite) TestEnsureAllInitialized() {
	s.Require().NoError(s.store.Update(s.ctx, func(txn Txn) error {
		return txn.Register("S2222222D", "H0001") // identity without pool
	}))

	created, err := s.store.EnsureAllInitialized(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, created)

	pool, err := s.store.Pool(s.ctx, "H0001")
	s.Require().NoError(err)
	s.Len(pool[2], 80)

	created, err = s.store.EnsureAllInitialized(s.ctx)
	s.Require().NoError(err)
	s.Zero(created)
}
