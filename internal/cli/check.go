package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/queryfilter"
	"github.com/hugr-lab/queryfilter/filter"
	"github.com/hugr-lab/queryfilter/internal/config"
	"github.com/hugr-lab/queryfilter/source/sqldb"
)

var (
	checkDataset string
	checkQuery   string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and optionally run a query",
	Long: `Loads the config, connects to the database and counts the records of
every dataset. With --dataset and --query, runs the query file (JSON filter
wire format, "-" for stdin) and prints the resulting page as JSON.

Examples:
  queryfilterd check
  queryfilterd check --dataset pets --query query.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		var query []byte
		if checkQuery != "" {
			if checkDataset == "" {
				return errors.New("--query requires --dataset")
			}
			if query, err = readQuery(cmd.InOrStdin(), checkQuery); err != nil {
				return err
			}
		}
		return check(cmd.Context(), cmd.OutOrStdout(), cfg, checkDataset, query)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkDataset, "dataset", "", "Dataset to query")
	checkCmd.Flags().StringVar(&checkQuery, "query", "", "Query file in the JSON filter format")
	rootCmd.AddCommand(checkCmd)
}

func readQuery(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query: %w", err)
	}
	return data, nil
}

// check counts every dataset, or runs query against dataset when given.
func check(ctx context.Context, out io.Writer, cfg *config.Config, dataset string, query []byte) error {
	logger, err := newLogger(io.Discard, cfg)
	if err != nil {
		return err
	}
	db, dialect, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sources, err := buildSources(db, dialect, cfg, logger)
	if err != nil {
		return err
	}

	if query == nil {
		for _, ds := range cfg.Datasets {
			n, err := sources[ds.Name].Count(ctx)
			if err != nil {
				return fmt.Errorf("dataset %q: %w", ds.Name, err)
			}
			fmt.Fprintf(out, "%s: %d records\n", ds.Name, n)
		}
		return nil
	}

	src, ok := sources[dataset]
	if !ok {
		return fmt.Errorf("unknown dataset %q", dataset)
	}
	q, err := filter.DecodeJSON(query)
	if err != nil {
		if errors.Is(err, filter.ErrUnknownKind) {
			return fmt.Errorf("%w (known kinds: %s)", err, joinKinds())
		}
		return err
	}
	page, err := queryfilter.Query[sqldb.Row](ctx, src, q)
	if err != nil {
		var ferr *filter.Error
		if errors.As(err, &ferr) {
			for _, msg := range ferr.Messages() {
				fmt.Fprintln(out, msg)
			}
		}
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(page)
}
