package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"cdcvoucher/internal/household/models"
	"cdcvoucher/pkg/platform/sentinel"
)

const (
	householdsFile   = "households.csv"
	voucherStateFile = "voucher_state.json"
)

var householdsHeader = []string{"National_ID", "Household_ID"}

// File persists household state in two files under a data directory: an
// identity CSV and a voucher-state JSON document. The layout matches the
// scheme's original data files, so existing directories load unchanged.
type File struct {
	mu     sync.Mutex
	dir    string
	counts map[int]int
	logger *slog.Logger

	identities map[string]string // nationalID -> householdID
	order      []string          // nationalIDs in registration order, drives CSV row order
	pools      map[string]models.Pool
}

// NewFile constructs a file-backed store rooted at dir. counts is the
// denomination table used when initializing pools.
func NewFile(dir string, counts map[int]int, logger *slog.Logger) *File {
	return &File{
		dir:        dir,
		counts:     counts,
		logger:     logger,
		identities: make(map[string]string),
		pools:      make(map[string]models.Pool),
	}
}

func (f *File) householdsPath() string   { return filepath.Join(f.dir, householdsFile) }
func (f *File) voucherStatePath() string { return filepath.Join(f.dir, voucherStateFile) }

// Load implements Store.
func (f *File) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reload()
}

// Save implements Store.
func (f *File) Save(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.persist()
}

// EnsureAllInitialized implements Store.
func (f *File) EnsureAllInitialized(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	created := 0
	for _, nationalID := range f.order {
		householdID := f.identities[nationalID]
		if _, ok := f.pools[householdID]; !ok {
			f.pools[householdID] = models.NewPool(f.counts)
			created++
		}
	}
	if created == 0 {
		return 0, nil
	}
	if err := f.persist(); err != nil {
		return created, err
	}
	return created, nil
}

// FindByNationalID implements Store.
func (f *File) FindByNationalID(ctx context.Context, nationalID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (&fileTxn{f}).FindByNationalID(nationalID)
}

// Households implements Store.
func (f *File) Households(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (&fileTxn{f}).Households(), nil
}

// Pool implements Store.
func (f *File) Pool(ctx context.Context, householdID string) (models.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (&fileTxn{f}).Pool(householdID)
}

// Update implements Store. The lock is held for the whole callback.
func (f *File) Update(ctx context.Context, fn func(Txn) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(&fileTxn{f})
}

// fileTxn gives callbacks lock-free access to the already-locked store.
type fileTxn struct {
	f *File
}

func (t *fileTxn) Reload() error  { return t.f.reload() }
func (t *fileTxn) Persist() error { return t.f.persist() }

func (t *fileTxn) FindByNationalID(nationalID string) (string, error) {
	householdID, ok := t.f.identities[nationalID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return householdID, nil
}

func (t *fileTxn) Register(nationalID, householdID string) error {
	if _, ok := t.f.identities[nationalID]; ok {
		return sentinel.ErrConflict
	}
	t.f.identities[nationalID] = householdID
	t.f.order = append(t.f.order, nationalID)
	return nil
}

func (t *fileTxn) Households() []string {
	ids := make([]string, 0, len(t.f.order))
	for _, nationalID := range t.f.order {
		ids = append(ids, t.f.identities[nationalID])
	}
	return ids
}

func (t *fileTxn) HasPool(householdID string) bool {
	_, ok := t.f.pools[householdID]
	return ok
}

func (t *fileTxn) InitPool(householdID string) error {
	if _, ok := t.f.pools[householdID]; ok {
		return sentinel.ErrConflict
	}
	t.f.pools[householdID] = models.NewPool(t.f.counts)
	return nil
}

func (t *fileTxn) Pool(householdID string) (models.Pool, error) {
	pool, ok := t.f.pools[householdID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return pool.Clone(), nil
}

func (t *fileTxn) States(householdID string, denom int) ([]uint8, error) {
	states, err := t.states(householdID, denom)
	if err != nil {
		return nil, err
	}
	copied := make([]uint8, len(states))
	copy(copied, states)
	return copied, nil
}

func (t *fileTxn) State(householdID string, denom, index int) (uint8, error) {
	states, err := t.states(householdID, denom)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= len(states) {
		return 0, fmt.Errorf("index %d outside pool of length %d: %w", index, len(states), sentinel.ErrOutOfRange)
	}
	return states[index], nil
}

func (t *fileTxn) SetUsed(householdID string, denom, index int) error {
	return t.set(householdID, denom, index, models.StateUsed)
}

func (t *fileTxn) SetUnusedForRollback(householdID string, denom, index int) error {
	return t.set(householdID, denom, index, models.StateUnused)
}

func (t *fileTxn) set(householdID string, denom, index int, state uint8) error {
	states, err := t.states(householdID, denom)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(states) {
		return fmt.Errorf("index %d outside pool of length %d: %w", index, len(states), sentinel.ErrOutOfRange)
	}
	if state == models.StateUsed && states[index] == models.StateUsed {
		return sentinel.ErrAlreadyUsed
	}
	states[index] = state
	return nil
}

func (t *fileTxn) states(householdID string, denom int) ([]uint8, error) {
	pool, ok := t.f.pools[householdID]
	if !ok {
		return nil, fmt.Errorf("household %s: %w", householdID, sentinel.ErrNotFound)
	}
	states, ok := pool[denom]
	if !ok {
		return nil, fmt.Errorf("household %s denomination %d: %w", householdID, denom, sentinel.ErrNotFound)
	}
	return states, nil
}

// reload reads both files. Missing files mean an empty registry; corrupt
// files are logged and treated as empty rather than failing the boot.
func (f *File) reload() error {
	identities, order, err := f.readHouseholds()
	if err != nil {
		return err
	}
	pools, err := f.readVoucherState()
	if err != nil {
		return err
	}
	f.identities = identities
	f.order = order
	f.pools = pools
	return nil
}

func (f *File) readHouseholds() (map[string]string, []string, error) {
	identities := make(map[string]string)
	var order []string

	file, err := os.Open(f.householdsPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return identities, order, nil
		}
		return nil, nil, fmt.Errorf("open households: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		f.warn("households file corrupt, treating as empty", err)
		return identities, order, nil
	}
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue // header or short row
		}
		nationalID, householdID := row[0], row[1]
		if nationalID == "" || householdID == "" {
			continue
		}
		if _, ok := identities[nationalID]; !ok {
			order = append(order, nationalID)
		}
		identities[nationalID] = householdID
	}
	return identities, order, nil
}

func (f *File) readVoucherState() (map[string]models.Pool, error) {
	pools := make(map[string]models.Pool)

	raw, err := os.ReadFile(f.voucherStatePath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pools, nil
		}
		return nil, fmt.Errorf("read voucher state: %w", err)
	}

	// Denominations are string keys and states are plain 0/1 integer arrays
	// on disk. []int here, not []uint8: encoding/json would base64 a byte
	// slice.
	var onDisk map[string]map[string][]int
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		f.warn("voucher state file corrupt, treating as empty", err)
		return pools, nil
	}
	for householdID, byDenom := range onDisk {
		pool := make(models.Pool, len(byDenom))
		for denomStr, states := range byDenom {
			denom, err := strconv.Atoi(denomStr)
			if err != nil {
				f.warn("voucher state has non-numeric denomination key "+denomStr, err)
				continue
			}
			converted := make([]uint8, len(states))
			for i, s := range states {
				if s != 0 {
					converted[i] = models.StateUsed
				}
			}
			pool[denom] = converted
		}
		pools[householdID] = pool
	}
	return pools, nil
}

// persist writes both files, identity table first so a household is never
// durable without its pool record after a full cycle. Writes go through a
// temp file and rename so a crash cannot leave a half-written table.
func (f *File) persist() error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := f.writeHouseholds(); err != nil {
		return err
	}
	return f.writeVoucherState()
}

func (f *File) writeHouseholds() error {
	rows := make([][]string, 0, len(f.order)+1)
	rows = append(rows, householdsHeader)
	for _, nationalID := range f.order {
		rows = append(rows, []string{nationalID, f.identities[nationalID]})
	}

	tmp := f.householdsPath() + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("write households: %w", err)
	}
	writer := csv.NewWriter(file)
	if err = writer.WriteAll(rows); err == nil {
		err = writer.Error()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write households: %w", err)
	}
	if err := os.Rename(tmp, f.householdsPath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write households: %w", err)
	}
	return nil
}

func (f *File) writeVoucherState() error {
	onDisk := make(map[string]map[string][]int, len(f.pools))
	for householdID, pool := range f.pools {
		byDenom := make(map[string][]int, len(pool))
		for denom, states := range pool {
			converted := make([]int, len(states))
			for i, s := range states {
				converted[i] = int(s)
			}
			byDenom[strconv.Itoa(denom)] = converted
		}
		onDisk[householdID] = byDenom
	}
	raw, err := json.MarshalIndent(onDisk, "", "  ")
	if err != nil {
		return fmt.Errorf("encode voucher state: %w", err)
	}

	tmp := f.voucherStatePath() + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write voucher state: %w", err)
	}
	if err := os.Rename(tmp, f.voucherStatePath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write voucher state: %w", err)
	}
	return nil
}

func (f *File) warn(msg string, err error) {
	if f.logger != nil {
		f.logger.Warn(msg, "error", err)
	}
}
