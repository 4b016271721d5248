package main

import (
	"os"

	"github.com/roach88/slate/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
