package flight

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/queryfilter/internal/recovery"
)

// PageMetadata is the msgpack app metadata attached to the record batch
// sent by DoGet.
type PageMetadata struct {
	// TotalCount is the filtered count before skip and take were applied.
	TotalCount int `msgpack:"totalCount"`
}

// DoGet runs the ticket's query and streams the resulting page.
//
// The ticket may be a server ticket from GetFlightInfo or a request ticket.
// The page is written as a single record batch, possibly empty, whose app
// metadata is a msgpack encoded PageMetadata.
func (s *Server) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	ctx := EnrichContextMetadata(stream.Context())
	logger := requestLogger(ctx, s.logger)

	logger.Debug("DoGet called", "ticket_size", len(ticket.GetTicket()))

	t, err := DecodeTicket(ticket.GetTicket())
	if err != nil {
		logger.Debug("Failed to decode ticket", "error", err)
		return toStatus(err)
	}

	ds, err := s.dataset(ctx, t.Dataset)
	if err != nil {
		return err
	}

	rec, total, err := recovery.Value2(logger, "Fetch", func() (arrow.RecordBatch, int, error) {
		return ds.Fetch(ctx, s.allocator, t.Query)
	})
	if err != nil {
		logger.Debug("Fetch failed", "dataset", t.Dataset, "error", err)
		return toStatus(err)
	}
	defer rec.Release()

	meta, err := msgpack.Marshal(&PageMetadata{TotalCount: total})
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode page metadata: %v", err)
	}

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(ds.ArrowSchema()), ipc.WithAllocator(s.allocator))
	defer writer.Close()

	if err := writer.WriteWithAppMetadata(rec, meta); err != nil {
		logger.Error("Failed to write record batch",
			"dataset", t.Dataset,
			"error", err,
		)
		return status.Errorf(codes.Internal, "failed to write batch: %v", err)
	}

	logger.Debug("DoGet completed successfully",
		"dataset", t.Dataset,
		"rows", rec.NumRows(),
		"total_count", total,
	)
	return nil
}
