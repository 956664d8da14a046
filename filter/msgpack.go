package filter

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// DecodeMsgpack parses a MessagePack query using the same field names and
// rules as DecodeJSON. Empty input yields a nil query.
func DecodeMsgpack(data []byte) (*Query, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	var node any
	if err := dec.Decode(&node); err != nil {
		return nil, decodeErrorf("$", err, "malformed MessagePack")
	}
	if node == nil {
		return nil, nil
	}
	return decodeQuery(node)
}

// EncodeMsgpack renders q as MessagePack.
func EncodeMsgpack(q *Query) ([]byte, error) {
	if q == nil {
		return msgpack.Marshal(nil)
	}
	return msgpack.Marshal(encodeQuery(q))
}
