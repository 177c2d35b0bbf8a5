package services

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"screentime-bar/src/lib"
	"screentime-bar/src/models"
)

// LedgerStore is the durable home of the usage ledger.
// Load returns lib.ErrNotFound (possibly wrapped) when nothing was saved yet.
type LedgerStore interface {
	Load() (*models.UsageLedger, error)
	Save(ledger *models.UsageLedger) error
	Close() error
}

// FileLedgerStore keeps the ledger as a JSON file replaced atomically on save.
type FileLedgerStore struct {
	path string
}

// NewFileLedgerStore creates a store backed by the file at path.
func NewFileLedgerStore(path string) *FileLedgerStore {
	return &FileLedgerStore{path: path}
}

// Path returns the ledger file location.
func (s *FileLedgerStore) Path() string {
	return s.path
}

// Load reads and decodes the ledger file.
func (s *FileLedgerStore) Load() (*models.UsageLedger, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, lib.PersistenceError(lib.ErrNotFound, "ledger file does not exist").
			WithContext("path", s.path)
	}
	if err != nil {
		return nil, lib.PersistenceError(err, "failed to read ledger file").
			WithContext("path", s.path)
	}
	return decodeLedger(data)
}

// Save writes the ledger with an all-or-nothing rename.
func (s *FileLedgerStore) Save(ledger *models.UsageLedger) error {
	data, err := encodeLedger(ledger)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data, 0o600)
}

// Close is a no-op; each save opens the file itself.
func (s *FileLedgerStore) Close() error {
	return nil
}

func encodeLedger(ledger *models.UsageLedger) ([]byte, error) {
	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return nil, lib.PersistenceError(err, "failed to encode ledger")
	}
	return data, nil
}

// decodeLedger fills only the fields present in data; the rest stay zero and
// are repaired by Sanitize and ReconcileFlags.
func decodeLedger(data []byte) (*models.UsageLedger, error) {
	var ledger models.UsageLedger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, lib.PersistenceError(err, "failed to decode ledger")
	}
	return &ledger, nil
}

// LoadLedgerOrDefault loads the ledger and degrades to a fresh one for today
// when the store is empty, unreadable, or holds an untrustworthy record.
// Losing today's count is an accepted worst case for a reminder tool.
func LoadLedgerOrDefault(store LedgerStore, now time.Time, logger *lib.Logger) *models.UsageLedger {
	ledger, err := store.Load()
	switch {
	case err == nil:
	case errors.Is(err, lib.ErrNotFound):
		logger.Info("No saved ledger, starting fresh", map[string]interface{}{
			"day": models.DayKey(now),
		})
		return models.NewUsageLedger(now)
	default:
		logger.Warn("Failed to load ledger, starting fresh", map[string]interface{}{
			"error": err.Error(),
		})
		return models.NewUsageLedger(now)
	}

	if err := ledger.Sanitize(now); err != nil {
		logger.Warn("Saved ledger failed validation, starting fresh", map[string]interface{}{
			"error": err.Error(),
		})
		return models.NewUsageLedger(now)
	}

	return ledger
}
