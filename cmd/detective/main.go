// Command detective is the Data Detective Academy CLI.
package main

import (
	"os"

	"github.com/datadetective/academy/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
