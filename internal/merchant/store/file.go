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

	"cdcvoucher/internal/merchant/models"
	"cdcvoucher/pkg/platform/sentinel"
)

const merchantFile = "merchant.csv"

// Header matches the original merchant table.
var Header = []string{
	"Merchant_ID", "Merchant_Name", "Bank_Name",
	"Account_Number", "Account_Holder_Name",
}

// File is the CSV-backed merchant registry.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile constructs a CSV merchant store at dir/merchant.csv.
func NewFile(dir string) *File {
	return &File{path: filepath.Join(dir, merchantFile)}
}

// Append implements Store.
func (f *File) Append(ctx context.Context, merchant *models.Merchant) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureHeader(); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open merchant store: %w", err)
	}
	writer := csv.NewWriter(file)
	err = writer.Write([]string{
		merchant.ID, merchant.Name, merchant.BankName,
		merchant.AccountNumber, merchant.AccountHolder,
	})
	if err == nil {
		writer.Flush()
		err = writer.Error()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("append merchant: %w", err)
	}
	return nil
}

func (f *File) ensureHeader() error {
	_, err := os.Stat(f.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat merchant store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	file, err := os.Create(f.path)
	if err != nil {
		return fmt.Errorf("create merchant store: %w", err)
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
		return fmt.Errorf("write merchant store header: %w", err)
	}
	return nil
}

// Find implements Store.
func (f *File) Find(ctx context.Context, merchantID string) (*models.Merchant, error) {
	all, err := f.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range all {
		if m.ID == merchantID {
			return m, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// All implements Store.
func (f *File) All(ctx context.Context) ([]*models.Merchant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open merchant store: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read merchant store: %w", err)
	}

	var merchants []*models.Merchant
	for i, row := range rows {
		if i == 0 || len(row) < len(Header) {
			continue
		}
		merchants = append(merchants, &models.Merchant{
			ID:            row[0],
			Name:          row[1],
			BankName:      row[2],
			AccountNumber: row[3],
			AccountHolder: row[4],
		})
	}
	return merchants, nil
}
