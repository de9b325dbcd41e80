// Command intentctl is an operator tool for the intent gateway: dry-run fact
// batches through the mapper, inspect the dimension schema, and mint caller
// tokens for local testing.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
