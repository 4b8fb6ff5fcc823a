package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "caseflow-api",
		Usage:                 "Serve the case workflow plan and readiness API",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			RunAPICommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
