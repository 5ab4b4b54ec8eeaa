package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiofs/kvctl/internal/codec"
	"github.com/maxiofs/kvctl/internal/pattern"
)

// sliceSource is an in-memory Source over sorted pairs.
type sliceSource struct {
	keys       []string
	values     map[string]string
	visited    int
	withValues []bool
	err        error
}

func newSliceSource(kv map[string]string) *sliceSource {
	s := &sliceSource{values: kv}
	for k := range kv {
		s.keys = append(s.keys, k)
	}
	sort.Strings(s.keys)
	return s
}

func (s *sliceSource) Scan(ctx context.Context, withValues bool, fn func(key, value []byte) bool) error {
	s.withValues = append(s.withValues, withValues)
	for _, k := range s.keys {
		s.visited++
		var v []byte
		if withValues {
			v = []byte(s.values[k])
		}
		if !fn([]byte(k), v) {
			break
		}
	}
	return s.err
}

func scenarioSource() *sliceSource {
	return newSliceSource(map[string]string{
		"a1": "va1", "a2": "va2", "b1": "vb1", "b2": "vb2", "c1": "vc1",
	})
}

func intp(n int) *int { return &n }

func mustQuery(t *testing.T, opts Options) *Query {
	t.Helper()
	q, err := NewQuery(opts)
	require.NoError(t, err)
	return q
}

func run(t *testing.T, src Source, opts Options) *Result {
	t.Helper()
	dec, err := codec.Lookup("utf8")
	require.NoError(t, err)
	res, err := Scan(context.Background(), src, dec, mustQuery(t, opts))
	require.NoError(t, err)
	return res
}

func TestScanScenario(t *testing.T) {
	t.Run("PatternWithLimit", func(t *testing.T) {
		res := run(t, scenarioSource(), Options{Pattern: pattern.MustCompile("^a"), Limit: intp(10)})
		assert.Equal(t, []string{"a1", "a2"}, res.Keys())
		assert.Equal(t, []string{"va1", "va2"}, res.Values())
		assert.Equal(t, ProjectPairs, res.Projection)
	})

	t.Run("OffsetAndLimit", func(t *testing.T) {
		res := run(t, scenarioSource(), Options{Offset: 1, Limit: intp(2)})
		assert.Equal(t, []string{"a2", "b1"}, res.Keys())
	})

	t.Run("PatternReverseKeysOnly", func(t *testing.T) {
		res := run(t, scenarioSource(), Options{Pattern: pattern.MustCompile("^a"), Reverse: true, OnlyKeys: true})
		assert.Equal(t, []string{"a2", "a1"}, res.Keys())
		assert.Equal(t, []string{"", ""}, res.Values())
	})
}

func TestScanOffsetCountsScannedEntries(t *testing.T) {
	// offset 2 skips a1 and a2 by scan position, leaving no "a" keys to match
	res := run(t, scenarioSource(), Options{Pattern: pattern.MustCompile("^a"), Offset: 2})
	assert.Empty(t, res.Records)

	// offset 3 skips a1, a2 and b1; b2 is the only remaining "b" key
	res = run(t, scenarioSource(), Options{Pattern: pattern.MustCompile("^b"), Offset: 3})
	assert.Equal(t, []string{"b2"}, res.Keys())
}

func TestScanLimit(t *testing.T) {
	for limit := 0; limit <= 6; limit++ {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			res := run(t, scenarioSource(), Options{Limit: intp(limit)})
			assert.LessOrEqual(t, res.Len(), limit)
			assert.Equal(t, min(limit, 5), res.Len())
		})
	}
}

func TestScanStopsIteratingAtLimit(t *testing.T) {
	src := scenarioSource()
	res := run(t, src, Options{Limit: intp(2)})
	assert.Equal(t, 2, res.Len())
	// the third entry is visited only to learn the cap has been reached
	assert.Equal(t, 3, src.visited)
}

func TestScanDefaultLimit(t *testing.T) {
	kv := make(map[string]string)
	for i := 0; i < DefaultLimit+20; i++ {
		kv[fmt.Sprintf("k%04d", i)] = "v"
	}

	res := run(t, newSliceSource(kv), Options{})
	assert.Equal(t, DefaultLimit, res.Len())

	res = run(t, newSliceSource(kv), Options{All: true})
	assert.Equal(t, DefaultLimit+20, res.Len())
}

func TestScanReverseIsReversedPage(t *testing.T) {
	cases := []Options{
		{},
		{Offset: 1, Limit: intp(3)},
		{Pattern: pattern.MustCompile("1$")},
		{All: true, OnlyValues: true},
	}
	for i, opts := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			forward := run(t, scenarioSource(), opts)
			opts.Reverse = true
			backward := run(t, scenarioSource(), opts)

			require.Equal(t, forward.Len(), backward.Len())
			for j := range forward.Records {
				assert.Equal(t, forward.Records[j], backward.Records[backward.Len()-1-j])
			}
		})
	}
}

func TestScanProjection(t *testing.T) {
	t.Run("OnlyValues", func(t *testing.T) {
		src := scenarioSource()
		res := run(t, src, Options{OnlyValues: true, Limit: intp(2)})
		assert.Equal(t, []string{"va1", "va2"}, res.Values())
		assert.Equal(t, []string{"", ""}, res.Keys())
		assert.Equal(t, []bool{true}, src.withValues)
	})

	t.Run("OnlyKeysSkipsValues", func(t *testing.T) {
		src := scenarioSource()
		run(t, src, Options{OnlyKeys: true})
		assert.Equal(t, []bool{false}, src.withValues)
	})

	t.Run("Pairs", func(t *testing.T) {
		res := run(t, scenarioSource(), Options{Limit: intp(1)})
		assert.Equal(t, [][2]string{{"a1", "va1"}}, res.Pairs())
	})
}

func TestScanPatternMatchesKeysOnly(t *testing.T) {
	res := run(t, scenarioSource(), Options{Pattern: pattern.MustCompile("^va")})
	assert.Empty(t, res.Records)
}

func TestScanErrors(t *testing.T) {
	t.Run("SourceError", func(t *testing.T) {
		src := scenarioSource()
		src.err = errors.New("disk on fire")
		dec, _ := codec.Lookup("utf8")
		_, err := Scan(context.Background(), src, dec, mustQuery(t, Options{}))
		assert.EqualError(t, err, "disk on fire")
	})

	t.Run("DecodeError", func(t *testing.T) {
		src := newSliceSource(map[string]string{"a": `"ok"`, "b": "{broken"})
		dec, _ := codec.Lookup("json")
		_, err := Scan(context.Background(), src, dec, mustQuery(t, Options{}))
		require.Error(t, err)
		assert.ErrorIs(t, err, codec.ErrMalformedValue)
		assert.Contains(t, err.Error(), `"b"`)
	})

	t.Run("KeysOnlyNeverDecodes", func(t *testing.T) {
		src := newSliceSource(map[string]string{"b": "{broken"})
		dec, _ := codec.Lookup("json")
		res, err := Scan(context.Background(), src, dec, mustQuery(t, Options{OnlyKeys: true}))
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, res.Keys())
	})
}

func TestNewQuery(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		q := mustQuery(t, Options{})
		assert.Equal(t, DefaultLimit, q.Limit())
		assert.Equal(t, 0, q.Offset())
		assert.False(t, q.All())
		assert.False(t, q.Reverse())
		assert.Nil(t, q.Pattern())
		assert.Equal(t, ProjectPairs, q.Projection())
	})

	t.Run("BothProjectionsRejected", func(t *testing.T) {
		_, err := NewQuery(Options{OnlyKeys: true, OnlyValues: true})
		assert.ErrorIs(t, err, ErrConflictingProjection)
	})

	t.Run("AllWithExplicitLimitRejected", func(t *testing.T) {
		_, err := NewQuery(Options{All: true, Limit: intp(5)})
		assert.ErrorIs(t, err, ErrConflictingLimit)
	})

	t.Run("NegativeValuesRejected", func(t *testing.T) {
		_, err := NewQuery(Options{Offset: -1})
		assert.ErrorIs(t, err, ErrInvalidQuery)
		_, err = NewQuery(Options{Limit: intp(-1)})
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})

	t.Run("MatchAllKeys", func(t *testing.T) {
		m := pattern.MustCompile("^x")
		q := MatchAllKeys(m)
		assert.True(t, q.All())
		assert.Equal(t, 0, q.Offset())
		assert.Equal(t, ProjectKeys, q.Projection())
		assert.Same(t, m, q.Pattern())
	})

	assert.Equal(t, "keys", ProjectKeys.String())
	assert.Equal(t, "values", ProjectValues.String())
	assert.Equal(t, "pairs", ProjectPairs.String())
}
