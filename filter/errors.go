package filter

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Standard errors returned by the filter package.
var (
	// ErrInvalidFilter matches every *Error.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrDecode matches every *DecodeError.
	ErrDecode = errors.New("filter decode error")

	// ErrUnknownKind indicates a filterType discriminator with no registered kind.
	ErrUnknownKind = errors.New("unknown filter type")

	// ErrCancelled is returned when the context is done before compilation
	// finishes. The context error is wrapped alongside it.
	ErrCancelled = errors.New("filter compilation cancelled")
)

// IssueCode classifies a validation issue.
type IssueCode string

const (
	IssueInvalidFieldType IssueCode = "InvalidFieldTypeForKind"
	IssueInvalidComparer  IssueCode = "InvalidComparerForKind"
	IssueInvalidValue     IssueCode = "InvalidValueForKind"
)

// Issue is one validation failure of one variant.
type Issue struct {
	Code IssueCode

	// Kind is the concrete kind name of the offending variant.
	Kind string

	// Field is the resolved field name.
	Field string

	// Group and Index locate the variant in the query.
	Group int
	Index int

	Message string
}

// Error aggregates every validation issue found while compiling a query.
// Issues are in traversal order: group order, then variant order.
type Error struct {
	Issues []Issue
}

// Messages returns the issue messages in traversal order.
func (e *Error) Messages() []string {
	out := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		out[i] = issue.Message
	}
	return out
}

func (e *Error) Error() string {
	return strings.Join(e.Messages(), "\n")
}

// Is makes errors.Is(err, ErrInvalidFilter) true for any *Error.
func (e *Error) Is(target error) bool { return target == ErrInvalidFilter }

// GRPCStatus reports the error as InvalidArgument to gRPC transports.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(codes.InvalidArgument, e.Error())
}

// DecodeError reports a malformed wire payload.
type DecodeError struct {
	// Path locates the offending node, e.g. "filterCollections[0].filters[2]".
	Path   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "filter: decode error at " + e.Path + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrDecode and the underlying cause.
func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}

// GRPCStatus reports the error as InvalidArgument to gRPC transports.
func (e *DecodeError) GRPCStatus() *status.Status {
	return status.New(codes.InvalidArgument, e.Error())
}

func decodeErrorf(path string, err error, format string, args ...any) *DecodeError {
	return &DecodeError{Path: path, Reason: fmt.Sprintf(format, args...), Err: err}
}
