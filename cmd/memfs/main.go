package main

import (
	"os"

	"github.com/deepnoodle-ai/memfs/cmd/memfs/cli"
)

func main() {
	os.Exit(cli.Execute())
}
