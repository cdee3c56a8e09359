package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cdcvoucher/internal/ledger/models"
)

type FileLedgerSuite struct {
	suite.Suite
	dir   string
	store *File
	ctx   context.Context
}

func (s *FileLedgerSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.store = NewFile(s.dir)
	s.ctx = context.Background()
}

func TestFileLedgerSuite(t *testing.T) {
	suite.Run(t, new(FileLedgerSuite))
}

func (s *FileLedgerSuite) line(txID, merchantID, code string, denom, total int, remark string) models.Line {
	return models.Line{
		TransactionID: txID,
		HouseholdID:   "H0001",
		MerchantID:    merchantID,
		RedeemedAt:    time.Date(2025, 6, 1, 14, 30, 0, 0, time.Local),
		VoucherCode:   code,
		Denomination:  denom,
		Total:         total,
		Status:        models.StatusCompleted,
		Remark:        remark,
	}
}

func (s *FileLedgerSuite) TestAppendAndReadBack() {
	lines := []models.Line{
		s.line("TX00001", "M001", "V02-0001-H0001", 2, 17, "1"),
		s.line("TX00001", "M001", "V05-0001-H0001", 5, 17, "2"),
		s.line("TX00001", "M001", "V10-0001-H0001", 10, 17, models.FinalRemark),
	}
	s.Require().NoError(s.store.Append(s.ctx, lines))

	all, err := s.store.All(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("TX00001", all[0].TransactionID)
	s.Equal(2, all[0].Denomination)
	s.Equal(17, all[0].Total)
	s.Equal(models.StatusCompleted, all[2].Status)
	s.Equal(models.FinalRemark, all[2].Remark)
	s.Equal(time.Date(2025, 6, 1, 14, 30, 0, 0, time.Local), all[0].RedeemedAt)
}

func (s *FileLedgerSuite) TestOriginalColumnFormats() {
	s.Require().NoError(s.store.Append(s.ctx, []models.Line{
		s.line("TX00001", "M001", "V02-0001-H0001", 2, 2, models.FinalRemark),
	}))

	raw, err := os.ReadFile(filepath.Join(s.dir, transactionsFile))
	s.Require().NoError(err)
	content := string(raw)

	s.True(strings.HasPrefix(content, strings.Join(Header, ",")), "header row first")
	s.Contains(content, "$2.00", "amounts keep the dollar format")
	s.Contains(content, "20250601143000", "compact timestamp format")
}

func (s *FileLedgerSuite) TestListByMerchantFiltersInInsertionOrder() {
	s.Require().NoError(s.store.Append(s.ctx, []models.Line{
		s.line("TX00001", "M001", "V02-0001-H0001", 2, 2, models.FinalRemark),
	}))
	s.Require().NoError(s.store.Append(s.ctx, []models.Line{
		s.line("TX00002", "M002", "V02-0002-H0001", 2, 2, models.FinalRemark),
	}))
	s.Require().NoError(s.store.Append(s.ctx, []models.Line{
		s.line("TX00003", "M001", "V05-0001-H0001", 5, 5, models.FinalRemark),
	}))

	lines, err := s.store.ListByMerchant(s.ctx, "M001")
	s.Require().NoError(err)
	s.Require().Len(lines, 2)
	s.Equal("TX00001", lines[0].TransactionID)
	s.Equal("TX00003", lines[1].TransactionID)
}

func (s *FileLedgerSuite) TestTransactionIDsAreDistinct() {
	s.Require().NoError(s.store.Append(s.ctx, []models.Line{
		s.line("TX00001", "M001", "V02-0001-H0001", 2, 7, "1"),
		s.line("TX00001", "M001", "V05-0001-H0001", 5, 7, models.FinalRemark),
	}))

	ids, err := s.store.TransactionIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"TX00001"}, ids)
}

func (s *FileLedgerSuite) TestEmptyLedger() {
	all, err := s.store.All(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)

	ids, err := s.store.TransactionIDs(s.ctx)
	s.Require().NoError(err)
	s.Empty(ids)
}
