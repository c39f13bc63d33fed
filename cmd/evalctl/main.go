package main

import (
	"os"

	"evald/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
