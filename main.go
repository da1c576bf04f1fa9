package main

import (
	"os"

	"propDesk/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
