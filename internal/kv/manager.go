// Package kv executes kvctl commands against an open store.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxiofs/kvctl/internal/codec"
	"github.com/maxiofs/kvctl/internal/metrics"
	"github.com/maxiofs/kvctl/internal/pattern"
	"github.com/maxiofs/kvctl/internal/scan"
	"github.com/maxiofs/kvctl/internal/store"
)

// Options configures a Manager. Store is required; the rest default to the
// JSON codec, a fresh logger and no metrics.
type Options struct {
	Store   store.Store
	Codec   codec.Codec
	Logger  *logrus.Logger
	Metrics metrics.Recorder
}

// Manager runs point reads and writes, listings and pattern deletes against
// one store handle. The caller owns the handle and closes it.
type Manager struct {
	store   store.Store
	codec   codec.Codec
	logger  *logrus.Logger
	metrics metrics.Recorder
}

// NewManager creates a Manager.
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if opts.Codec == nil {
		c, err := codec.Lookup(codec.DefaultEncoding)
		if err != nil {
			return nil, err
		}
		opts.Codec = c
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRecorder(false)
	}
	return &Manager{
		store:   opts.Store,
		codec:   opts.Codec,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// Get returns the decoded value stored under key.
func (m *Manager) Get(ctx context.Context, key string) (value string, err error) {
	defer m.observe("get", time.Now(), &err)

	data, err := m.store.Get(ctx, []byte(key))
	if err != nil {
		m.logger.WithError(err).WithField("key", key).Debug("Get failed")
		return "", ErrNotFound
	}
	return m.codec.Decode(data)
}

// Put encodes value with the active codec and stores it under key.
func (m *Manager) Put(ctx context.Context, key, value string) (err error) {
	defer m.observe("put", time.Now(), &err)

	data, err := m.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if err := m.store.Put(ctx, []byte(key), data); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	m.logger.WithFields(logrus.Fields{
		"key":      key,
		"bytes":    len(data),
		"encoding": m.codec.Name(),
	}).Debug("Value stored")
	return nil
}

// Delete removes a single key. A missing key is reported as ErrNotFound.
func (m *Manager) Delete(ctx context.Context, key string) (err error) {
	defer m.observe("delete", time.Now(), &err)

	if _, err := m.store.Get(ctx, []byte(key)); err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if err := m.store.Delete(ctx, []byte(key)); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	m.logger.WithField("key", key).Debug("Key deleted")
	return nil
}

// DeleteByPattern removes every key matching the pattern in one atomic batch
// and returns how many keys were removed. The whole keyspace is considered.
// When nothing matches it returns ErrNotFound without writing.
func (m *Manager) DeleteByPattern(ctx context.Context, raw string) (deleted int, err error) {
	defer m.observe("delete_pattern", time.Now(), &err)

	matcher, err := pattern.Compile(raw)
	if err != nil {
		return 0, err
	}

	plan, err := scan.Scan(ctx, m.store, m.codec, scan.MatchAllKeys(matcher))
	if err != nil {
		return 0, err
	}
	if plan.Len() == 0 {
		return 0, fmt.Errorf("%w: no keys match %q", ErrNotFound, matcher.String())
	}

	batch := m.store.NewBatch()
	defer batch.Close() //nolint:errcheck

	for _, key := range plan.Keys() {
		if err := batch.Delete([]byte(key)); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
	}
	if err := batch.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	m.metrics.RecordKeys("delete_pattern", plan.Len())
	m.logger.WithFields(logrus.Fields{
		"pattern": matcher.String(),
		"deleted": plan.Len(),
	}).Info("Keys deleted by pattern")
	return plan.Len(), nil
}

// List runs a listing query. A nil query lists with default options.
func (m *Manager) List(ctx context.Context, q *scan.Query) (res *scan.Result, err error) {
	defer m.observe("list", time.Now(), &err)

	if q == nil {
		if q, err = scan.NewQuery(scan.Options{}); err != nil {
			return nil, err
		}
	}
	res, err = scan.Scan(ctx, m.store, m.codec, q)
	if err != nil {
		return nil, err
	}
	m.metrics.RecordKeys("list", res.Len())
	return res, nil
}

func (m *Manager) observe(operation string, start time.Time, errp *error) {
	status := metrics.StatusSuccess
	switch {
	case *errp == nil:
	case errors.Is(*errp, ErrNotFound):
		status = metrics.StatusNotFound
	default:
		status = metrics.StatusFailure
	}
	m.metrics.RecordOperation(operation, status, time.Since(start))
}
