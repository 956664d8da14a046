package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/hugr-lab/queryfilter/flight"
	"github.com/hugr-lab/queryfilter/internal/config"
)

var listenFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Arrow Flight server",
	Long: `Opens the configured database and serves every dataset over Arrow Flight
until interrupted.

Examples:
  queryfilterd serve --config queryfilterd.toml
  queryfilterd serve --listen 0.0.0.0:50051`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if listenFlag != "" {
			cfg.Listen = listenFlag
		}
		logger, err := newLogger(cmd.ErrOrStderr(), cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		lis, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Listen, err)
		}
		return serve(ctx, cfg, lis, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenFlag, "listen", "", "Override the listen address from config")
	rootCmd.AddCommand(serveCmd)
}

// serve runs the Flight server on lis until ctx is done, then stops
// gracefully.
func serve(ctx context.Context, cfg *config.Config, lis net.Listener, logger *slog.Logger) error {
	db, dialect, err := openDatabase(ctx, cfg)
	if err != nil {
		lis.Close()
		return err
	}
	defer db.Close()

	sources, err := buildSources(db, dialect, cfg, logger)
	if err != nil {
		lis.Close()
		return err
	}
	datasets, err := buildDatasets(cfg, sources)
	if err != nil {
		lis.Close()
		return err
	}

	fcfg := flight.Config{
		Datasets:       datasets,
		Auth:           cfg.Authenticator(),
		Logger:         logger,
		MaxMessageSize: cfg.MaxMessageSize,
		Address:        cfg.Address,
	}
	grpcServer := grpc.NewServer(flight.ServerOptions(fcfg)...)
	if err := flight.Register(grpcServer, fcfg); err != nil {
		lis.Close()
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	logger.Info("Serving", "address", lis.Addr().String(), "dialect", dialect.String())

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
