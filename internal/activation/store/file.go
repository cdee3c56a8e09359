package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cdcvoucher/internal/activation/models"
	"cdcvoucher/pkg/platform/sentinel"
)

const activationsFile = "activations.json"

// timestampLayout matches the original activation log.
const timestampLayout = "2006-01-02 15:04:05"

// onDiskRecord is the JSON shape of one activation, unchanged from the
// original log so existing files keep working.
type onDiskRecord struct {
	Barcode      string   `json:"barcode"`
	VoucherCodes []string `json:"voucher_codes"`
	Timestamp    string   `json:"timestamp"`
}

// File persists activation records as a JSON array at dir/activations.json.
// Save rewrites the whole array; activation volume is a handful of records
// per household, so the full rewrite stays cheap.
type File struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewFile constructs a file-backed activation store.
func NewFile(dir string, logger *slog.Logger) *File {
	return &File{path: filepath.Join(dir, activationsFile), logger: logger}
}

// Save implements Store.
func (f *File) Save(ctx context.Context, record models.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.readAll()
	if err != nil {
		return err
	}
	for _, existing := range records {
		if existing.Barcode == record.Barcode {
			return sentinel.ErrConflict
		}
	}
	records = append(records, onDiskRecord{
		Barcode:      record.Barcode,
		VoucherCodes: record.VoucherCodes,
		Timestamp:    record.ActivatedAt.Format(timestampLayout),
	})

	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode activations: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write activations: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write activations: %w", err)
	}
	return nil
}

// Find implements Store.
func (f *File) Find(ctx context.Context, barcode string) (models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.readAll()
	if err != nil {
		return models.Record{}, err
	}
	for _, record := range records {
		if record.Barcode == barcode {
			activatedAt, _ := time.ParseInLocation(timestampLayout, record.Timestamp, time.Local)
			return models.Record{
				Barcode:      record.Barcode,
				VoucherCodes: record.VoucherCodes,
				ActivatedAt:  activatedAt,
			}, nil
		}
	}
	return models.Record{}, sentinel.ErrNotFound
}

// readAll loads the activation log. Missing means empty; corrupt is logged
// and treated as empty.
func (f *File) readAll() ([]onDiskRecord, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read activations: %w", err)
	}
	var records []onDiskRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		if f.logger != nil {
			f.logger.Warn("activation log corrupt, treating as empty", "error", err)
		}
		return nil, nil
	}
	return records, nil
}
