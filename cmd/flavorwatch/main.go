package main

import (
	"os"

	"flavorwatch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
