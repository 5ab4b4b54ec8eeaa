// Package pattern compiles user-supplied key patterns.
//
// A pattern is either a bare regular expression body ("^user:") or a regex
// literal with flags ("/^user:/i"). Go's RE2 syntax applies in both cases.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid pattern")

// Matcher tests keys against a compiled pattern.
type Matcher struct {
	source string
	re     *regexp.Regexp
}

// Compile parses raw into a Matcher.
func Compile(raw string) (*Matcher, error) {
	body, flags, isLiteral := splitLiteral(raw)
	if !isLiteral {
		body = raw
	}

	var inline strings.Builder
	for _, f := range flags {
		// g, u and y only affect repeated matching; a key test is a single match
		if strings.ContainsRune("ims", f) {
			inline.WriteRune(f)
		}
	}
	if inline.Len() > 0 {
		body = "(?" + inline.String() + ")" + body
	}

	re, err := regexp.Compile(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return &Matcher{source: raw, re: re}, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package-level patterns.
func MustCompile(raw string) *Matcher {
	m, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return m
}

// literalFlags are the flags a "/body/flags" literal may carry.
const literalFlags = "gimsuy"

// splitLiteral recognises "/body/flags". A string is a literal only when it
// starts with '/', has a later '/', and the text after that slash is a set of
// distinct literalFlags. Anything else, such as "/users/admin", is a bare body.
func splitLiteral(raw string) (body, flags string, ok bool) {
	if len(raw) < 2 || raw[0] != '/' {
		return "", "", false
	}
	end := strings.LastIndexByte(raw, '/')
	if end == 0 {
		return "", "", false
	}
	flags = raw[end+1:]
	for i, r := range flags {
		if !strings.ContainsRune(literalFlags, r) || strings.ContainsRune(flags[:i], r) {
			return "", "", false
		}
	}
	return raw[1:end], flags, true
}

// Test reports whether key matches anywhere.
func (m *Matcher) Test(key string) bool {
	return m.re.MatchString(key)
}

// String returns the pattern as the user wrote it.
func (m *Matcher) String() string {
	return m.source
}
