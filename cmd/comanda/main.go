package main

import (
	"os"

	"github.com/comanda-labs/comanda/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
