package filter

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/tailscale/hujson"
)

// DecodeJSON parses a JSON query.
//
// Property names match case-insensitively, trailing commas and comments are
// tolerated, and blank input yields a nil query with no error.
func DecodeJSON(data []byte) (*Query, error) {
	node, err := parseJSON(data)
	if err != nil || node == nil {
		return nil, err
	}
	return decodeQuery(node)
}

// DecodeVariantJSON parses a single filter variant.
func DecodeVariantJSON(data []byte) (Variant, error) {
	node, err := parseJSON(data)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, decodeErrorf("$", nil, "empty input")
	}
	return decodeVariant(node, "$")
}

// EncodeJSON renders q in the wire format accepted by DecodeJSON.
func EncodeJSON(q *Query) ([]byte, error) {
	if q == nil {
		return []byte("null"), nil
	}
	return json.Marshal(encodeQuery(q))
}

func parseJSON(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	std, err := hujson.Standardize(bytes.Clone(data))
	if err != nil {
		return nil, decodeErrorf("$", err, "malformed JSON")
	}

	dec := json.NewDecoder(bytes.NewReader(std))
	dec.UseNumber()
	var node any
	if err := dec.Decode(&node); err != nil {
		return nil, decodeErrorf("$", err, "malformed JSON")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, decodeErrorf("$", err, "trailing data after JSON value")
	}
	return node, nil
}
