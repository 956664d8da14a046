// Package cli implements the queryfilterd command-line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/queryfilter/internal/config"
)

var configPath string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "queryfilterd",
	Short: "Serve filtered, paged SQL tables over Arrow Flight",
	Long: `queryfilterd exposes DuckDB or SQLite tables as Arrow Flight datasets.
Clients send a filter query (groups of typed filters, a sort field, skip and
take) and receive one page of records together with the filtered total.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "queryfilterd.toml", "Path to config file")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
