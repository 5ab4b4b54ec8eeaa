package codec

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultEncoding is used when no --encoding is given.
const DefaultEncoding = "json"

var (
	// ErrUnknownEncoding is returned by Lookup for an unregistered name.
	ErrUnknownEncoding = errors.New("unknown encoding")

	// ErrMalformedValue is returned when stored bytes or user input do not
	// match the active encoding.
	ErrMalformedValue = errors.New("malformed value")
)

// Codec converts between the bytes kept in the store and the text a user
// types or reads.
type Codec interface {
	Name() string

	// Encode turns command-line text into the bytes to store.
	Encode(text string) ([]byte, error)

	// Decode turns stored bytes into printable text.
	Decode(data []byte) (string, error)
}

var registry = map[string]Codec{}

func register(c Codec, aliases ...string) {
	registry[c.Name()] = c
	for _, a := range aliases {
		registry[a] = c
	}
}

func init() {
	register(utf8Codec{}, "raw", "utf-8", "ascii")
	register(jsonCodec{})
	register(hexCodec{})
	register(base64Codec{})
	register(msgpackCodec{})
}

// Lookup returns the codec registered under name (case-insensitive).
// An empty name selects DefaultEncoding.
func Lookup(name string) (Codec, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultEncoding
	}
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownEncoding, name, strings.Join(Names(), ", "))
	}
	return c, nil
}

// Names lists every registered name, aliases included, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// utf8Codec passes text through unchanged.
type utf8Codec struct{}

func (utf8Codec) Name() string                       { return "utf8" }
func (utf8Codec) Encode(text string) ([]byte, error) { return []byte(text), nil }
func (utf8Codec) Decode(data []byte) (string, error) { return string(data), nil }

// hexCodec stores the bytes spelled by a hex string.
type hexCodec struct{}

func (hexCodec) Name() string { return "hex" }

func (hexCodec) Encode(text string) ([]byte, error) {
	b, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}
	return b, nil
}

func (hexCodec) Decode(data []byte) (string, error) { return hex.EncodeToString(data), nil }

// base64Codec stores the bytes spelled by standard base64 text.
type base64Codec struct{}

func (base64Codec) Name() string { return "base64" }

func (base64Codec) Encode(text string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}
	return b, nil
}

func (base64Codec) Decode(data []byte) (string, error) {
	return base64.StdEncoding.EncodeToString(data), nil
}
