// Package scan implements listing: one ascending pass over the store with
// offset skipping, key pattern filtering, a result cap, optional reversal of
// the collected page and key/value projection.
package scan

import (
	"context"
	"fmt"
)

// Source is the part of a store the scan reads from.
type Source interface {
	Scan(ctx context.Context, withValues bool, fn func(key, value []byte) bool) error
}

// Decoder turns stored bytes into printable text.
type Decoder interface {
	Decode(data []byte) (string, error)
}

// Record is one listed entry. Value is empty for key-only results and Key is
// empty for value-only results.
type Record struct {
	Key   string
	Value string
}

// Result is a fully collected listing.
type Result struct {
	Projection Projection
	Records    []Record
}

// Len returns the number of entries.
func (r *Result) Len() int { return len(r.Records) }

// Keys returns the key of every entry in result order.
func (r *Result) Keys() []string {
	keys := make([]string, len(r.Records))
	for i, rec := range r.Records {
		keys[i] = rec.Key
	}
	return keys
}

// Values returns the value of every entry in result order.
func (r *Result) Values() []string {
	values := make([]string, len(r.Records))
	for i, rec := range r.Records {
		values[i] = rec.Value
	}
	return values
}

// Pairs returns [key, value] tuples in result order.
func (r *Result) Pairs() [][2]string {
	pairs := make([][2]string, len(r.Records))
	for i, rec := range r.Records {
		pairs[i] = [2]string{rec.Key, rec.Value}
	}
	return pairs
}

// Scan runs q against src and returns the collected page.
//
// The scan index counts every visited entry, so Offset skips the first
// entries of the keyspace whether or not they match the pattern. The cap is
// checked before each entry, which keeps the page at most Limit long unless
// All is set. Reverse flips the collected page, not the scan direction.
func Scan(ctx context.Context, src Source, dec Decoder, q *Query) (*Result, error) {
	res := &Result{Projection: q.projection}

	var (
		index     int
		decodeErr error
	)
	err := src.Scan(ctx, q.needsValues(), func(key, value []byte) bool {
		if !q.all && len(res.Records) >= q.limit {
			return false
		}
		pos := index
		index++
		if pos < q.offset {
			return true
		}
		k := string(key)
		if q.pattern != nil && !q.pattern.Test(k) {
			return true
		}

		rec := Record{}
		if q.projection != ProjectValues {
			rec.Key = k
		}
		if q.projection != ProjectKeys {
			v, err := dec.Decode(value)
			if err != nil {
				decodeErr = fmt.Errorf("failed to decode value of %q: %w", k, err)
				return false
			}
			rec.Value = v
		}
		res.Records = append(res.Records, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}

	if q.reverse {
		for i, j := 0, len(res.Records)-1; i < j; i, j = i+1, j-1 {
			res.Records[i], res.Records[j] = res.Records[j], res.Records[i]
		}
	}
	return res, nil
}
