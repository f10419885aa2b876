// Package main is the entry point for the salesctl CLI binary.
package main

import (
	"os"

	cli "sales-dashboard/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
