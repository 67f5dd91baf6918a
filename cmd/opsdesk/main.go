package main

import (
	"context"
	"os"

	"github.com/dukerupert/opsdesk/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRootCmd(version).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
