package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"screentime-bar/src/lib"
	"screentime-bar/src/models"
)

const (
	bucketLedger     = "ledger"
	ledgerCurrentKey = "current"
)

// BoltLedgerStore keeps the ledger in a bbolt database; every save is a
// single transaction, so the on-disk record is never half written.
type BoltLedgerStore struct {
	db *bbolt.DB
}

// OpenBoltLedgerStore opens or creates the database at path.
func OpenBoltLedgerStore(path string) (*BoltLedgerStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, lib.PersistenceError(err, "failed to create ledger directory")
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, lib.PersistenceError(err, "failed to open bolt ledger").
			WithContext("path", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketLedger)); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketLedger, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, lib.PersistenceError(err, "failed to prepare bolt ledger")
	}

	return &BoltLedgerStore{db: db}, nil
}

// Load reads the current ledger record.
func (s *BoltLedgerStore) Load() (*models.UsageLedger, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketLedger))
		if b == nil {
			return lib.ErrNotFound
		}
		value := b.Get([]byte(ledgerCurrentKey))
		if value == nil {
			return lib.ErrNotFound
		}
		// value is only valid inside the transaction.
		data = append([]byte(nil), value...)
		return nil
	})
	if err != nil {
		return nil, lib.PersistenceError(err, "failed to read bolt ledger")
	}
	return decodeLedger(data)
}

// Save replaces the current ledger record.
func (s *BoltLedgerStore) Save(ledger *models.UsageLedger) error {
	data, err := encodeLedger(ledger)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketLedger))
		if b == nil {
			return fmt.Errorf("bucket missing: %s", bucketLedger)
		}
		return b.Put([]byte(ledgerCurrentKey), data)
	})
	if err != nil {
		return lib.PersistenceError(err, "failed to write bolt ledger")
	}
	return nil
}

// Close closes the underlying database.
func (s *BoltLedgerStore) Close() error {
	return s.db.Close()
}

// OpenLedgerStore picks the backend named by config.StoreBackend.
func OpenLedgerStore(config *models.Config, paths Paths) (LedgerStore, error) {
	switch config.StoreBackend {
	case models.StoreBackendBolt:
		return OpenBoltLedgerStore(paths.Bolt)
	case models.StoreBackendFile, "":
		return NewFileLedgerStore(paths.Ledger), nil
	default:
		return nil, lib.ValidationError("unknown store backend: " + config.StoreBackend)
	}
}
