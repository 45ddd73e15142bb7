package main

import (
	"fmt"
	"os"

	"op-pipeline-backend/cmd/opctl/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
