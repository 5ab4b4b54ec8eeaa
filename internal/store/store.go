package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrStoreNotFound = errors.New("store does not exist")
	ErrUnknownEngine = errors.New("unknown storage engine")
	ErrBatchClosed   = errors.New("batch already committed or closed")
)

// Store is the contract kvctl needs from an ordered, persistent key-value engine.
// Keys are compared bytewise and Scan always walks them in ascending order.
type Store interface {
	// Get returns a copy of the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Put stores a key-value pair, replacing any previous value.
	Put(ctx context.Context, key, value []byte) error

	// Delete removes key. Deleting an absent key is not an error at this layer.
	Delete(ctx context.Context, key []byte) error

	// Scan iterates every key in ascending order. When withValues is false the
	// engine may skip reading values and fn receives a nil value. fn receives
	// copies; returning false stops the scan early.
	Scan(ctx context.Context, withValues bool, fn func(key, value []byte) bool) error

	// NewBatch starts an atomic write batch. Nothing is applied until Commit.
	NewBatch() Batch

	// Engine reports which engine backs the store.
	Engine() Engine

	// Close releases the store and its file locks.
	Close() error
}

// Batch stages writes that are applied all-or-none by Commit.
type Batch interface {
	Set(key, value []byte) error
	Delete(key []byte) error

	// Len returns the number of staged operations.
	Len() int

	// Commit applies every staged operation atomically. A batch cannot be
	// reused after Commit.
	Commit(ctx context.Context) error

	// Close discards a batch that was not committed. Safe to call after Commit.
	Close() error
}

// Engine names a storage engine implementation.
type Engine string

const (
	EngineAuto   Engine = "auto"
	EnginePebble Engine = "pebble"
	EngineBadger Engine = "badger"
	EngineBolt   Engine = "bolt"
)

// DefaultEngine is used when a new store is created with EngineAuto.
const DefaultEngine = EnginePebble

// Engines lists the concrete engines in detection order.
var Engines = []Engine{EnginePebble, EngineBadger, EngineBolt}

// ParseEngine resolves an engine name (case-insensitive). An empty name means auto.
func ParseEngine(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return EngineAuto, nil
	case "pebble", "leveldb":
		return EnginePebble, nil
	case "badger":
		return EngineBadger, nil
	case "bolt", "bbolt":
		return EngineBolt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

// stagedOp is one operation recorded by engines without a native batch type.
type stagedOp struct {
	key    []byte
	value  []byte
	delete bool
}

// stagedBatch records operations in memory and hands them to apply on Commit,
// which is expected to run them inside a single engine transaction.
type stagedBatch struct {
	ops    []stagedOp
	apply  func(ops []stagedOp) error
	closed bool
}

func (b *stagedBatch) Set(key, value []byte) error {
	if b.closed {
		return ErrBatchClosed
	}
	b.ops = append(b.ops, stagedOp{key: cloneBytes(key), value: cloneBytes(value)})
	return nil
}

func (b *stagedBatch) Delete(key []byte) error {
	if b.closed {
		return ErrBatchClosed
	}
	b.ops = append(b.ops, stagedOp{key: cloneBytes(key), delete: true})
	return nil
}

func (b *stagedBatch) Len() int { return len(b.ops) }

func (b *stagedBatch) Commit(ctx context.Context) error {
	if b.closed {
		return ErrBatchClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.closed = true
	ops := b.ops
	b.ops = nil
	return b.apply(ops)
}

func (b *stagedBatch) Close() error {
	b.closed = true
	b.ops = nil
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
