package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// jsonCodec stores the typed text as a JSON string, so reads return exactly
// what was written. Stored values that are other JSON documents, such as
// values written by another tool, print compacted.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Encode(text string) ([]byte, error) {
	return json.Marshal(text)
}

func (jsonCodec) Decode(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedValue, err)
		}
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}
	return buf.String(), nil
}

// msgpackCodec stores the typed text as a MessagePack string. Other stored
// MessagePack values print as JSON.
type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }

func (msgpackCodec) Encode(text string) ([]byte, error) {
	return msgpack.Marshal(text)
}

func (msgpackCodec) Decode(data []byte) (string, error) {
	var v interface{}
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}
	return string(out), nil
}
