package flight

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/queryfilter"
	"github.com/hugr-lab/queryfilter/filter"
)

var (
	// ErrInvalidConfig indicates Config validation failed.
	ErrInvalidConfig = errors.New("invalid server config")
	// ErrDatasetNotFound is returned when a ticket or descriptor names an
	// unregistered dataset.
	ErrDatasetNotFound = errors.New("dataset not found")
)

// ErrDuplicateDataset is returned by NewServer if datasets share a name.
type ErrDuplicateDataset struct {
	Name string
}

func (e ErrDuplicateDataset) Error() string {
	return "duplicate dataset name: " + e.Name
}

// toStatus converts an error from decoding, compiling or running a query
// into a gRPC status error. Errors that already carry a status keep it.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(interface{ GRPCStatus() *status.Status }); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, filter.ErrCancelled), errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, ErrDatasetNotFound):
		code = codes.NotFound
	case errors.Is(err, ErrInvalidTicket),
		errors.Is(err, filter.ErrDecode),
		errors.Is(err, filter.ErrInvalidFilter),
		errors.Is(err, queryfilter.ErrUnknownSortField):
		code = codes.InvalidArgument
	default:
		if st, ok := status.FromError(err); ok {
			return st.Err()
		}
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
