package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	"github.com/sirupsen/logrus"
)

// PebbleStore implements Store on top of Pebble (CockroachDB's LSM engine).
// Its on-disk layout follows LevelDB's, so a directory holding a CURRENT file
// is treated as a Pebble store.
type PebbleStore struct {
	db     *pebble.DB
	path   string
	logger *logrus.Logger
}

// PebbleOptions contains configuration options for PebbleStore
type PebbleOptions struct {
	Path   string
	Create bool
	Logger *logrus.Logger
}

// NewPebbleStore opens the Pebble store at opts.Path. Unless opts.Create is set
// a missing store yields ErrStoreNotFound.
func NewPebbleStore(opts PebbleOptions) (*PebbleStore, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	if opts.Create {
		if err := os.MkdirAll(opts.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	} else if !pebbleExists(opts.Path) {
		return nil, ErrStoreNotFound
	}

	cache := pebble.NewCache(64 << 20) // 64 MB block cache
	defer cache.Unref()

	db, err := pebble.Open(opts.Path, &pebble.Options{
		Cache: cache,
		Levels: []pebble.LevelOptions{
			{Compression: pebble.SnappyCompression},
		},
		ErrorIfNotExists: !opts.Create,
		Logger:           &pebbleLogger{logger: opts.Logger},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db: %w", err)
	}

	opts.Logger.WithField("path", opts.Path).Debug("Pebble store opened")
	return &PebbleStore{db: db, path: opts.Path, logger: opts.Logger}, nil
}

// pebbleExists reports whether dir holds a Pebble/LevelDB store.
func pebbleExists(dir string) bool {
	if fileExists(filepath.Join(dir, "CURRENT")) {
		return true
	}
	markers, _ := filepath.Glob(filepath.Join(dir, "marker.manifest.*"))
	return len(markers) > 0
}

// Get retrieves a value by key and returns a safe copy of it.
func (s *PebbleStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	val, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	data := cloneBytes(val)
	_ = closer.Close()
	return data, nil
}

// Put stores a value synchronously.
func (s *PebbleStore) Put(ctx context.Context, key, value []byte) error {
	return s.db.Set(key, value, pebble.Sync)
}

// Delete removes a key synchronously.
func (s *PebbleStore) Delete(ctx context.Context, key []byte) error {
	return s.db.Delete(key, pebble.Sync)
}

// Scan walks the whole keyspace in ascending order.
func (s *PebbleStore) Scan(ctx context.Context, withValues bool, fn func(key, value []byte) bool) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	for valid := iter.First(); valid; valid = iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var val []byte
		if withValues {
			val = cloneBytes(iter.Value())
		}
		if !fn(cloneBytes(iter.Key()), val) {
			break
		}
	}
	return iter.Error()
}

// NewBatch returns a Pebble batch, committed with a WAL sync.
func (s *PebbleStore) NewBatch() Batch {
	return &pebbleBatch{b: s.db.NewBatch()}
}

func (s *PebbleStore) Engine() Engine { return EnginePebble }

// Close shuts down the Pebble store.
func (s *PebbleStore) Close() error {
	s.logger.WithField("path", s.path).Debug("Closing Pebble store")
	return s.db.Close()
}

type pebbleBatch struct {
	b      *pebble.Batch
	n      int
	closed bool
}

func (b *pebbleBatch) Set(key, value []byte) error {
	if b.closed {
		return ErrBatchClosed
	}
	if err := b.b.Set(key, value, nil); err != nil {
		return fmt.Errorf("batch set %q: %w", key, err)
	}
	b.n++
	return nil
}

func (b *pebbleBatch) Delete(key []byte) error {
	if b.closed {
		return ErrBatchClosed
	}
	if err := b.b.Delete(key, nil); err != nil {
		return fmt.Errorf("batch delete %q: %w", key, err)
	}
	b.n++
	return nil
}

func (b *pebbleBatch) Len() int { return b.n }

func (b *pebbleBatch) Commit(ctx context.Context) error {
	if b.closed {
		return ErrBatchClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.b.Commit(pebble.Sync)
	b.closed = true
	_ = b.b.Close()
	return err
}

func (b *pebbleBatch) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.b.Close()
}

// pebbleLogger adapts logrus to pebble's Logger interface.
type pebbleLogger struct {
	logger *logrus.Logger
}

func (l *pebbleLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf("[Pebble] "+format, args...)
}

func (l *pebbleLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf("[Pebble] "+format, args...)
}

func (l *pebbleLogger) Fatalf(format string, args ...interface{}) {
	l.logger.Fatalf("[Pebble] "+format, args...)
}

var _ Store = (*PebbleStore)(nil)
