package main

import (
	"fmt"
	"os"

	"github.com/smartmarket-labs/retrieval-engine/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
