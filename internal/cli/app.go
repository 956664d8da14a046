package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "modernc.org/sqlite"

	"github.com/hugr-lab/queryfilter/flight"
	"github.com/hugr-lab/queryfilter/internal/config"
	"github.com/hugr-lab/queryfilter/source/sqldb"
)

// openDatabase opens and pings the configured database.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, sqldb.Dialect, error) {
	dialect, err := cfg.Dialect()
	if err != nil {
		return nil, 0, err
	}
	db, err := sql.Open(dialect.DriverName(), cfg.Database.DSN)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, 0, fmt.Errorf("failed to connect to %s database: %w", dialect, err)
	}
	return db, dialect, nil
}

// buildSources creates one row source per configured dataset, keyed by
// dataset name.
func buildSources(db *sql.DB, dialect sqldb.Dialect, cfg *config.Config, logger *slog.Logger) (map[string]*sqldb.Source[sqldb.Row], error) {
	out := make(map[string]*sqldb.Source[sqldb.Row], len(cfg.Datasets))
	for _, ds := range cfg.Datasets {
		sch, columns, err := ds.RowSchema()
		if err != nil {
			return nil, fmt.Errorf("dataset %q: %w", ds.Name, err)
		}
		src, err := sqldb.New(db, sqldb.Options[sqldb.Row]{
			Dialect: dialect,
			Table:   ds.Table,
			Schema:  sch,
			Columns: columns,
			Logger:  logger.With("dataset", ds.Name),
		})
		if err != nil {
			return nil, fmt.Errorf("dataset %q: %w", ds.Name, err)
		}
		out[ds.Name] = src
	}
	return out, nil
}

// buildDatasets wraps the sources for the Flight server in config order.
func buildDatasets(cfg *config.Config, sources map[string]*sqldb.Source[sqldb.Row]) ([]flight.Dataset, error) {
	out := make([]flight.Dataset, 0, len(cfg.Datasets))
	for _, ds := range cfg.Datasets {
		d, err := flight.NewDataset[sqldb.Row](ds.Name, sources[ds.Name])
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
