package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

const badgerKeyRegistry = "KEYREGISTRY" // file present only in BadgerDB directories

// BadgerStore implements Store using BadgerDB
type BadgerStore struct {
	db     *badger.DB
	path   string
	logger *logrus.Logger
}

// BadgerOptions contains configuration options for BadgerStore
type BadgerOptions struct {
	Path       string
	Create     bool
	SyncWrites bool
	Logger     *logrus.Logger
}

// NewBadgerStore opens the BadgerDB store at opts.Path.
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	if !opts.Create && !badgerExists(opts.Path) {
		return nil, ErrStoreNotFound
	}

	badgerOpts := badger.DefaultOptions(opts.Path).
		WithLogger(newBadgerLogger(opts.Logger)).
		WithSyncWrites(opts.SyncWrites).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	opts.Logger.WithField("path", opts.Path).Debug("BadgerDB store opened")
	return &BadgerStore{db: db, path: opts.Path, logger: opts.Logger}, nil
}

func badgerExists(dir string) bool {
	return fileExists(filepath.Join(dir, badgerKeyRegistry))
}

// Get retrieves a value by key.
func (s *BadgerStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	return data, err
}

// Put stores a key-value pair in its own transaction.
func (s *BadgerStore) Put(ctx context.Context, key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete removes a key in its own transaction.
func (s *BadgerStore) Delete(ctx context.Context, key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Scan iterates all keys inside one read transaction. Values are not
// prefetched when withValues is false.
func (s *BadgerStore) Scan(ctx context.Context, withValues bool, fn func(key, value []byte) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = withValues
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := item.KeyCopy(nil)
			var val []byte
			if withValues {
				var err error
				val, err = item.ValueCopy(nil)
				if err != nil {
					return fmt.Errorf("failed to read value for key %q: %w", key, err)
				}
			}
			if !fn(key, val) {
				break
			}
		}
		return nil
	})
}

// NewBatch stages operations and applies them in a single BadgerDB transaction,
// so a batch larger than Badger's transaction limit fails as a whole
// (badger.ErrTxnTooBig) instead of being split.
func (s *BadgerStore) NewBatch() Batch {
	return &stagedBatch{apply: func(ops []stagedOp) error {
		return s.db.Update(func(txn *badger.Txn) error {
			for _, op := range ops {
				if op.delete {
					if err := txn.Delete(op.key); err != nil {
						return fmt.Errorf("batch delete %q: %w", op.key, err)
					}
					continue
				}
				if err := txn.Set(op.key, op.value); err != nil {
					return fmt.Errorf("batch set %q: %w", op.key, err)
				}
			}
			return nil
		})
	}}
}

func (s *BadgerStore) Engine() Engine { return EngineBadger }

// Close closes the BadgerDB store.
func (s *BadgerStore) Close() error {
	s.logger.WithField("path", s.path).Debug("Closing BadgerDB store")
	return s.db.Close()
}

// badgerLogger adapts logrus to BadgerDB's logger interface
type badgerLogger struct {
	logger *logrus.Logger
}

func newBadgerLogger(logger *logrus.Logger) *badgerLogger {
	return &badgerLogger{logger: logger}
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf("[BadgerDB] "+format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf("[BadgerDB] "+format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf("[BadgerDB] "+format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Tracef("[BadgerDB] "+format, args...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

var _ Store = (*BadgerStore)(nil)
