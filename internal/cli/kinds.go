package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/queryfilter/comparer"
	"github.com/hugr-lab/queryfilter/filter"
)

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List filter kinds and comparers",
	Long: `Prints the filterType discriminators and the comparer identifiers
accepted in queries. Does not read the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Filter kinds:")
		for _, k := range filter.Kinds() {
			fmt.Fprintf(out, "  %s\n", k)
		}
		fmt.Fprintln(out, "Comparers:")
		for _, c := range comparer.Default.All() {
			fmt.Fprintf(out, "  %-3d %s\n", c.ID, c.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(kindsCmd)
}

// joinKinds is used in error hints.
func joinKinds() string {
	return strings.Join(filter.Kinds(), ", ")
}
