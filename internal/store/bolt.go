package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

const (
	// BoltFileName is the database file kept inside the store directory.
	BoltFileName = "kvctl.bolt"

	boltBucket = "kv"
)

// BoltStore implements Store on a single top-level bbolt bucket.
type BoltStore struct {
	db     *bbolt.DB
	path   string
	logger *logrus.Logger
}

// BoltOptions contains configuration options for BoltStore
type BoltOptions struct {
	Path   string
	Create bool
	Logger *logrus.Logger
}

// NewBoltStore opens {opts.Path}/kvctl.bolt.
func NewBoltStore(opts BoltOptions) (*BoltStore, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	if opts.Create {
		if err := os.MkdirAll(opts.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	} else if !boltExists(opts.Path) {
		return nil, ErrStoreNotFound
	}

	file := filepath.Join(opts.Path, BoltFileName)
	bdb, err := bbolt.Open(file, 0644, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = bdb.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("failed to create bolt bucket: %w", err)
	}

	opts.Logger.WithField("path", file).Debug("Bolt store opened")
	return &BoltStore{db: bdb, path: file, logger: opts.Logger}, nil
}

func boltExists(dir string) bool {
	return fileExists(filepath.Join(dir, BoltFileName))
}

// Get retrieves a value by key. Bolt values are only valid inside the
// transaction, so the result is copied out.
func (s *BoltStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(boltBucket)).Get(key)
		if v == nil {
			return ErrKeyNotFound
		}
		data = cloneBytes(v)
		return nil
	})
	return data, err
}

func (s *BoltStore) Put(ctx context.Context, key, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put(key, value)
	})
}

func (s *BoltStore) Delete(ctx context.Context, key []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Delete(key)
	})
}

// Scan walks the bucket cursor in ascending order inside one read transaction.
func (s *BoltStore) Scan(ctx context.Context, withValues bool, fn func(key, value []byte) bool) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(boltBucket)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var val []byte
			if withValues {
				val = cloneBytes(v)
			}
			if !fn(cloneBytes(k), val) {
				break
			}
		}
		return nil
	})
}

// NewBatch stages operations and applies them in one read-write transaction.
func (s *BoltStore) NewBatch() Batch {
	return &stagedBatch{apply: func(ops []stagedOp) error {
		return s.db.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket([]byte(boltBucket))
			for _, op := range ops {
				if op.delete {
					if err := b.Delete(op.key); err != nil {
						return fmt.Errorf("batch delete %q: %w", op.key, err)
					}
					continue
				}
				if err := b.Put(op.key, op.value); err != nil {
					return fmt.Errorf("batch set %q: %w", op.key, err)
				}
			}
			return nil
		})
	}}
}

func (s *BoltStore) Engine() Engine { return EngineBolt }

func (s *BoltStore) Close() error {
	s.logger.WithField("path", s.path).Debug("Closing Bolt store")
	return s.db.Close()
}

var _ Store = (*BoltStore)(nil)
