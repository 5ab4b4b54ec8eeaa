package scan

import (
	"errors"
	"fmt"

	"github.com/maxiofs/kvctl/internal/pattern"
)

// DefaultLimit caps a listing when neither a limit nor All is given.
const DefaultLimit = 100

var (
	ErrConflictingProjection = errors.New("only-keys and only-values are mutually exclusive")
	ErrConflictingLimit      = errors.New("all and limit are mutually exclusive")
	ErrInvalidQuery          = errors.New("invalid query")
)

// Projection selects what each result entry carries.
type Projection int

const (
	ProjectPairs Projection = iota
	ProjectKeys
	ProjectValues
)

func (p Projection) String() string {
	switch p {
	case ProjectKeys:
		return "keys"
	case ProjectValues:
		return "values"
	default:
		return "pairs"
	}
}

// Options is the unvalidated option set a listing is built from.
// Limit is a pointer so an explicit limit can be told apart from the default.
type Options struct {
	Pattern    *pattern.Matcher
	Limit      *int
	Offset     int
	Reverse    bool
	OnlyKeys   bool
	OnlyValues bool
	All        bool
}

// Query is a validated listing request. Build it with NewQuery.
type Query struct {
	pattern    *pattern.Matcher
	limit      int
	offset     int
	reverse    bool
	projection Projection
	all        bool
}

// NewQuery validates opts and returns the query it describes.
func NewQuery(opts Options) (*Query, error) {
	if opts.OnlyKeys && opts.OnlyValues {
		return nil, ErrConflictingProjection
	}
	if opts.All && opts.Limit != nil {
		return nil, ErrConflictingLimit
	}
	if opts.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative (got %d)", ErrInvalidQuery, opts.Offset)
	}

	limit := DefaultLimit
	if opts.Limit != nil {
		if *opts.Limit < 0 {
			return nil, fmt.Errorf("%w: limit must not be negative (got %d)", ErrInvalidQuery, *opts.Limit)
		}
		limit = *opts.Limit
	}

	projection := ProjectPairs
	switch {
	case opts.OnlyKeys:
		projection = ProjectKeys
	case opts.OnlyValues:
		projection = ProjectValues
	}

	return &Query{
		pattern:    opts.Pattern,
		limit:      limit,
		offset:     opts.Offset,
		reverse:    opts.Reverse,
		projection: projection,
		all:        opts.All,
	}, nil
}

// MatchAllKeys is the query used to resolve a bulk delete: every key matching
// m, keys only, no offset and no limit.
func MatchAllKeys(m *pattern.Matcher) *Query {
	return &Query{pattern: m, limit: DefaultLimit, projection: ProjectKeys, all: true}
}

func (q *Query) Pattern() *pattern.Matcher { return q.pattern }
func (q *Query) Limit() int                { return q.limit }
func (q *Query) Offset() int               { return q.offset }
func (q *Query) Reverse() bool             { return q.reverse }
func (q *Query) Projection() Projection    { return q.projection }
func (q *Query) All() bool                 { return q.all }

// needsValues reports whether the scan has to read values at all.
func (q *Query) needsValues() bool { return q.projection != ProjectKeys }
