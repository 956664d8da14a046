// Package flight serves queryable datasets over Arrow Flight.
//
// A client discovers datasets with ListFlights, sizes a request with
// GetFlightInfo and fetches one page with DoGet. Requests are tickets naming
// a dataset and a filter query; see Ticket for the encodings.
package flight

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/queryfilter/auth"
)

// Config contains configuration for the Flight server.
type Config struct {
	// Datasets served by the server. REQUIRED: at least one, unique names.
	Datasets []Dataset

	// Auth provides authentication logic.
	// OPTIONAL: If nil, no authentication (all requests allowed). When it
	// implements auth.DatasetAuthorizer, access is checked per dataset.
	Auth auth.Authenticator

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger

	// LogLevel, when set and Logger is nil, builds a text logger on stderr
	// with that level.
	LogLevel *slog.Level

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	MaxMessageSize int

	// Address is the server's public address (e.g., "localhost:50051").
	// OPTIONAL: If empty, FlightEndpoint locations will not include URI.
	Address string
}

// Server implements the Flight service handlers.
// Embeds BaseFlightServer so unimplemented RPCs report Unimplemented.
type Server struct {
	flight.BaseFlightServer

	datasets  map[string]Dataset
	names     []string
	auth      auth.Authenticator
	allocator memory.Allocator
	logger    *slog.Logger
	address   string
}

// NewServer validates cfg and builds the Flight service.
func NewServer(cfg Config) (*Server, error) {
	if len(cfg.Datasets) == 0 {
		return nil, fmt.Errorf("%w: at least one dataset is required", ErrInvalidConfig)
	}

	s := &Server{
		datasets:  make(map[string]Dataset, len(cfg.Datasets)),
		auth:      cfg.Auth,
		allocator: cfg.Allocator,
		logger:    cfg.Logger,
		address:   cfg.Address,
	}
	for _, ds := range cfg.Datasets {
		if ds == nil {
			return nil, fmt.Errorf("%w: nil dataset", ErrInvalidConfig)
		}
		if _, ok := s.datasets[ds.Name()]; ok {
			return nil, ErrDuplicateDataset{Name: ds.Name()}
		}
		s.datasets[ds.Name()] = ds
		s.names = append(s.names, ds.Name())
	}
	slices.Sort(s.names)

	if s.allocator == nil {
		s.allocator = memory.DefaultAllocator
	}
	if s.logger == nil {
		s.logger = newLogger(cfg.LogLevel)
	}
	return s, nil
}

// Register validates cfg, builds the service and registers it on
// grpcServer. It does not start serving; the caller owns the lifecycle.
//
//	opts := flight.ServerOptions(cfg)
//	grpcServer := grpc.NewServer(opts...)
//	if err := flight.Register(grpcServer, cfg); err != nil {
//	    log.Fatal(err)
//	}
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
func Register(grpcServer *grpc.Server, cfg Config) error {
	s, err := NewServer(cfg)
	if err != nil {
		return err
	}
	flight.RegisterFlightServiceServer(grpcServer, s)
	s.logger.Info("Flight server registered",
		"datasets", s.names,
		"has_auth", cfg.Auth != nil,
		"max_message_size", cfg.MaxMessageSize,
	)
	return nil
}

// ServerOptions returns gRPC server options with authentication
// interceptors and message size limits derived from cfg.
func ServerOptions(cfg Config) []grpc.ServerOption {
	opts := auth.ServerOptions(cfg.Auth)
	if cfg.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(cfg.MaxMessageSize),
			grpc.MaxSendMsgSize(cfg.MaxMessageSize),
		)
	}
	return opts
}

func newLogger(level *slog.Level) *slog.Logger {
	if level == nil {
		return slog.Default()
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *level}))
}
