package main

import (
	"os"

	"github.com/nixxel-company-limited/escpos-spool-bridge/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
