package main

import (
	"os"

	"github.com/ariel-frischer/shipset/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
