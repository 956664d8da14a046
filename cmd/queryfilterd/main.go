// Command queryfilterd serves SQL tables as filterable Arrow Flight datasets.
package main

import (
	"os"

	"github.com/hugr-lab/queryfilter/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
