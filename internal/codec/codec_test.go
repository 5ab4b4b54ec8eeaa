package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"", "json"},
		{"json", "json"},
		{"JSON", "json"},
		{"utf8", "utf8"},
		{"raw", "utf8"},
		{"ascii", "utf8"},
		{"hex", "hex"},
		{"base64", "base64"},
		{"msgpack", "msgpack"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Lookup(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c.Name())
		})
	}

	_, err := Lookup("ucs2")
	assert.ErrorIs(t, err, ErrUnknownEncoding)
	assert.Contains(t, err.Error(), "json")
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		encoding string
		text     string
	}{
		{"utf8", "hello world"},
		{"utf8", `{"not":"parsed"}`},
		{"json", "hello world"},
		{"json", `{"b":1,"a":[true,null,"x"]}`},
		{"json", "42"},
		{"json", " 42"},
		{"json", "true"},
		{"json", `"hello"`},
		{"json", `{ "a": 1 }`},
		{"json", ""},
		{"hex", "deadbeef"},
		{"base64", "aGVsbG8="},
		{"msgpack", "plain text"},
		{"msgpack", `{ "a": 1 }`},
		{"msgpack", `[1,2.5,"three",false]`},
		{"msgpack", "18446744073709551615"},
	}

	for _, tt := range tests {
		t.Run(tt.encoding+"/"+tt.text, func(t *testing.T) {
			c, err := Lookup(tt.encoding)
			require.NoError(t, err)

			data, err := c.Encode(tt.text)
			require.NoError(t, err)

			got, err := c.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.text, got)
		})
	}
}

func TestJSONEncoding(t *testing.T) {
	c, err := Lookup("json")
	require.NoError(t, err)

	t.Run("PlainTextStoredAsString", func(t *testing.T) {
		data, err := c.Encode("hello")
		require.NoError(t, err)
		assert.Equal(t, `"hello"`, string(data))
	})

	t.Run("DocumentStoredAsString", func(t *testing.T) {
		data, err := c.Encode(`{ "a": 1 }`)
		require.NoError(t, err)
		assert.Equal(t, `"{ \"a\": 1 }"`, string(data))
	})

	t.Run("ForeignDocumentPrintsCompacted", func(t *testing.T) {
		got, err := c.Decode([]byte("{ \"a\" : [1, 2] }"))
		require.NoError(t, err)
		assert.Equal(t, `{"a":[1,2]}`, got)
	})

	t.Run("MalformedStoredValue", func(t *testing.T) {
		_, err := c.Decode([]byte("{broken"))
		assert.ErrorIs(t, err, ErrMalformedValue)
	})
}

func TestBinaryEncodingsRejectBadInput(t *testing.T) {
	for _, name := range []string{"hex", "base64"} {
		t.Run(name, func(t *testing.T) {
			c, err := Lookup(name)
			require.NoError(t, err)
			_, err = c.Encode("not valid!")
			assert.ErrorIs(t, err, ErrMalformedValue)
		})
	}
}

func TestMsgpackForeignValues(t *testing.T) {
	c, err := Lookup("msgpack")
	require.NoError(t, err)

	data, err := c.Encode("text")
	require.NoError(t, err)
	var s string
	require.NoError(t, msgpack.Unmarshal(data, &s))
	assert.Equal(t, "text", s)

	tests := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{"MaxUint64", uint64(math.MaxUint64), "18446744073709551615"},
		{"MinInt64", int64(math.MinInt64), "-9223372036854775808"},
		{"Map", map[string]interface{}{"n": 1}, `{"n":1}`},
		{"Array", []interface{}{"a", true}, `["a",true]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := msgpack.Marshal(tt.value)
			require.NoError(t, err)
			got, err := c.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMsgpackMalformed(t *testing.T) {
	c, err := Lookup("msgpack")
	require.NoError(t, err)
	_, err = c.Decode([]byte{0xc1}) // never used in MessagePack
	assert.ErrorIs(t, err, ErrMalformedValue)
}
