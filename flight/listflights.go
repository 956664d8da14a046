package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/queryfilter/auth"
)

// ListFlights sends one FlightInfo per dataset the caller may query, in
// name order. Each carries the dataset schema, a PATH descriptor with the
// dataset name and a ticket for an unfiltered fetch. Totals are not
// computed here; use GetFlightInfo for a filtered count.
//
// Criteria are ignored.
func (s *Server) ListFlights(_ *flight.Criteria, stream flight.FlightService_ListFlightsServer) error {
	ctx := EnrichContextMetadata(stream.Context())
	logger := requestLogger(ctx, s.logger)

	logger.Debug("ListFlights called")

	sent := 0
	for _, name := range s.names {
		if err := ctx.Err(); err != nil {
			return toStatus(err)
		}
		if err := auth.AuthorizeDataset(ctx, s.auth, name); err != nil {
			continue
		}

		info, err := s.flightInfo(&flight.FlightDescriptor{
			Type: flight.DescriptorPATH,
			Path: []string{name},
		}, &Ticket{Dataset: name}, -1)
		if err != nil {
			logger.Error("Failed to build FlightInfo", "dataset", name, "error", err)
			return status.Errorf(codes.Internal, "failed to build flight info for %s: %v", name, err)
		}
		if err := stream.Send(info); err != nil {
			logger.Error("Failed to send FlightInfo", "dataset", name, "error", err)
			return status.Errorf(codes.Internal, "failed to send flight info: %v", err)
		}
		sent++
	}

	logger.Debug("ListFlights completed", "datasets", sent)
	return nil
}

// dataset resolves a dataset by name and checks the caller may query it.
func (s *Server) dataset(ctx context.Context, name string) (Dataset, error) {
	ds, ok := s.datasets[name]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "%v: %s", ErrDatasetNotFound, name)
	}
	if err := auth.AuthorizeDataset(ctx, s.auth, name); err != nil {
		return nil, err
	}
	return ds, nil
}

// flightInfo describes one fetch of t. total is the filtered record count,
// or -1 when unknown.
func (s *Server) flightInfo(desc *flight.FlightDescriptor, t *Ticket, total int64) (*flight.FlightInfo, error) {
	ticket, err := serverTicket(t)
	if err != nil {
		return nil, err
	}

	endpoint := &flight.FlightEndpoint{
		Ticket: &flight.Ticket{Ticket: ticket},
	}
	if s.address != "" {
		endpoint.Location = []*flight.Location{
			{Uri: "grpc://" + s.address},
		}
	}

	return &flight.FlightInfo{
		Schema:           flight.SerializeSchema(s.datasets[t.Dataset].ArrowSchema(), s.allocator),
		FlightDescriptor: desc,
		Endpoint:         []*flight.FlightEndpoint{endpoint},
		TotalRecords:     total,
		TotalBytes:       -1,
	}, nil
}
