package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultCopyBatchSize is the number of keys committed per destination batch.
const DefaultCopyBatchSize = 10_000

// ErrDestinationExists is returned when CopyTo would overwrite an existing store.
var ErrDestinationExists = errors.New("destination store already exists")

// CopyOptions describes the destination of CopyTo.
type CopyOptions struct {
	Path      string
	Engine    Engine
	BatchSize int
	Logger    *logrus.Logger
}

// CopyTo writes every key of src into a new store at opts.Path.
//
// The destination is built in a sibling staging directory and renamed into
// place only after every key has been committed and the store closed, so a
// failed copy never leaves a partial store at opts.Path.
func CopyTo(ctx context.Context, src Store, opts CopyOptions) (int64, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultCopyBatchSize
	}
	if opts.Engine == "" || opts.Engine == EngineAuto {
		opts.Engine = src.Engine()
	}
	if Exists(opts.Path, EngineAuto) {
		return 0, fmt.Errorf("%w: %s", ErrDestinationExists, opts.Path)
	}

	stagingDir := filepath.Join(filepath.Dir(filepath.Clean(opts.Path)),
		fmt.Sprintf(".kvctl-copy-%s", uuid.NewString()))

	dst, err := Open(Options{Path: stagingDir, Engine: opts.Engine, Create: true, Logger: opts.Logger})
	if err != nil {
		_ = os.RemoveAll(stagingDir)
		return 0, fmt.Errorf("failed to create destination store: %w", err)
	}

	copied, err := copyKeys(ctx, src, dst, opts.BatchSize, opts.Logger)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.RemoveAll(stagingDir)
		return copied, fmt.Errorf("copy failed after %d keys: %w", copied, err)
	}

	// The destination may be an empty directory created by the user.
	if info, statErr := os.Stat(opts.Path); statErr == nil && info.IsDir() {
		if rmErr := os.Remove(opts.Path); rmErr != nil {
			_ = os.RemoveAll(stagingDir)
			return copied, fmt.Errorf("destination directory is not empty: %w", rmErr)
		}
	}
	if err := os.Rename(stagingDir, opts.Path); err != nil {
		_ = os.RemoveAll(stagingDir)
		return copied, fmt.Errorf("failed to move copied store into place: %w", err)
	}

	opts.Logger.WithFields(logrus.Fields{
		"copied_keys": copied,
		"path":        opts.Path,
		"engine":      opts.Engine,
	}).Info("Store copy complete")
	return copied, nil
}

func copyKeys(ctx context.Context, src, dst Store, batchSize int, logger *logrus.Logger) (int64, error) {
	var total int64
	batch := dst.NewBatch()
	defer func() { _ = batch.Close() }()

	var writeErr error
	scanErr := src.Scan(ctx, true, func(key, value []byte) bool {
		if writeErr = batch.Set(key, value); writeErr != nil {
			return false
		}
		total++
		if batch.Len() >= batchSize {
			if writeErr = batch.Commit(ctx); writeErr != nil {
				return false
			}
			batch = dst.NewBatch()
			logger.WithField("keys_copied", total).Info("Copy progress")
		}
		return true
	})
	if scanErr != nil {
		return total, scanErr
	}
	if writeErr != nil {
		return total, writeErr
	}
	if batch.Len() > 0 {
		if err := batch.Commit(ctx); err != nil {
			return total, fmt.Errorf("failed to commit final batch: %w", err)
		}
	}
	return total, nil
}
