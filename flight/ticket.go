package flight

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tailscale/hujson"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hugr-lab/queryfilter/filter"
)

// ErrInvalidTicket is returned when a ticket cannot be decoded.
var ErrInvalidTicket = errors.New("invalid ticket")

// Ticket names a dataset and the query to run against it.
//
// Clients send request tickets as JSON or msgpack objects of the form
// {"dataset": "pets", "query": {...}}, where query uses the filter wire
// format. Tickets issued by the server in FlightInfo endpoints carry the
// same content msgpack encoded and zstd compressed. DecodeTicket accepts
// all three forms.
type Ticket struct {
	Dataset string

	// Query may be nil, meaning all records in the source order.
	Query *filter.Query
}

type jsonTicket struct {
	Dataset string          `json:"dataset"`
	Query   json.RawMessage `json:"query,omitempty"`
}

type msgpackTicket struct {
	Dataset string             `msgpack:"dataset"`
	Query   msgpack.RawMessage `msgpack:"query,omitempty"`
}

// EncodeTicket renders a JSON request ticket.
func EncodeTicket(dataset string, q *filter.Query) ([]byte, error) {
	if dataset == "" {
		return nil, fmt.Errorf("%w: dataset name cannot be empty", ErrInvalidTicket)
	}
	wire := jsonTicket{Dataset: dataset}
	if q != nil {
		raw, err := filter.EncodeJSON(q)
		if err != nil {
			return nil, fmt.Errorf("failed to encode ticket query: %w", err)
		}
		wire.Query = raw
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return data, nil
}

// EncodeTicketMsgpack renders a msgpack request ticket.
func EncodeTicketMsgpack(dataset string, q *filter.Query) ([]byte, error) {
	if dataset == "" {
		return nil, fmt.Errorf("%w: dataset name cannot be empty", ErrInvalidTicket)
	}
	wire := msgpackTicket{Dataset: dataset}
	if q != nil {
		raw, err := filter.EncodeMsgpack(q)
		if err != nil {
			return nil, fmt.Errorf("failed to encode ticket query: %w", err)
		}
		wire.Query = raw
	}
	data, err := msgpack.Marshal(&wire)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return data, nil
}

// DecodeTicket parses a request or server ticket. Query decoding failures
// keep their filter.ErrDecode chain.
func DecodeTicket(data []byte) (*Ticket, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: ticket cannot be empty", ErrInvalidTicket)
	}

	switch {
	case isCompressed(trimmed):
		plain, err := decompress(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTicket, err)
		}
		return decodeMsgpackTicket(plain)
	case trimmed[0] == '{':
		return decodeJSONTicket(trimmed)
	default:
		return decodeMsgpackTicket(trimmed)
	}
}

func decodeJSONTicket(data []byte) (*Ticket, error) {
	std, err := hujson.Standardize(bytes.Clone(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTicket, err)
	}
	var wire jsonTicket
	if err := json.Unmarshal(std, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTicket, err)
	}
	if wire.Dataset == "" {
		return nil, fmt.Errorf("%w: decoded ticket has empty dataset name", ErrInvalidTicket)
	}

	t := &Ticket{Dataset: wire.Dataset}
	if len(wire.Query) > 0 && !bytes.Equal(wire.Query, []byte("null")) {
		if t.Query, err = filter.DecodeJSON(wire.Query); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func decodeMsgpackTicket(data []byte) (*Ticket, error) {
	var wire msgpackTicket
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTicket, err)
	}
	if wire.Dataset == "" {
		return nil, fmt.Errorf("%w: decoded ticket has empty dataset name", ErrInvalidTicket)
	}

	t := &Ticket{Dataset: wire.Dataset}
	if len(wire.Query) > 0 && !bytes.Equal(wire.Query, []byte{0xc0}) {
		var err error
		if t.Query, err = filter.DecodeMsgpack(wire.Query); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// serverTicket builds the compressed ticket placed in FlightInfo endpoints.
func serverTicket(t *Ticket) ([]byte, error) {
	plain, err := EncodeTicketMsgpack(t.Dataset, t.Query)
	if err != nil {
		return nil, err
	}
	return compress(plain)
}
