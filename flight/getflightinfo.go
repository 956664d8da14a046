package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/queryfilter/internal/recovery"
)

// GetFlightInfo validates a request and reports its size.
//
// A CMD descriptor carries a request ticket; a PATH descriptor holds a
// single dataset name and requests every record. The returned FlightInfo
// has the dataset schema, the filtered record count as TotalRecords and a
// compressed server ticket for DoGet. Filter errors surface here, before
// any data is fetched.
func (s *Server) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	ctx = EnrichContextMetadata(ctx)
	logger := requestLogger(ctx, s.logger)

	logger.Debug("GetFlightInfo called",
		"type", desc.GetType(),
		"cmd_size", len(desc.GetCmd()),
		"path_length", len(desc.GetPath()),
	)

	var ticket *Ticket
	switch desc.GetType() {
	case flight.DescriptorCMD:
		t, err := DecodeTicket(desc.GetCmd())
		if err != nil {
			logger.Debug("Failed to decode descriptor command", "error", err)
			return nil, toStatus(err)
		}
		ticket = t
	case flight.DescriptorPATH:
		path := desc.GetPath()
		if len(path) != 1 {
			return nil, status.Error(codes.InvalidArgument, "path must contain exactly 1 element: [dataset]")
		}
		ticket = &Ticket{Dataset: path[0]}
	default:
		return nil, status.Error(codes.InvalidArgument, "descriptor must be CMD or PATH type")
	}

	ds, err := s.dataset(ctx, ticket.Dataset)
	if err != nil {
		return nil, err
	}

	total, err := recovery.Value(logger, "Count", func() (int, error) {
		return ds.Count(ctx, ticket.Query)
	})
	if err != nil {
		logger.Debug("Count failed", "dataset", ticket.Dataset, "error", err)
		return nil, toStatus(err)
	}

	info, err := s.flightInfo(desc, ticket, int64(total))
	if err != nil {
		logger.Error("Failed to build FlightInfo", "dataset", ticket.Dataset, "error", err)
		return nil, status.Errorf(codes.Internal, "failed to build flight info: %v", err)
	}

	logger.Debug("GetFlightInfo successful",
		"dataset", ticket.Dataset,
		"total_records", total,
	)
	return info, nil
}
