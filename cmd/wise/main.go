package main

import (
	"os"

	"github.com/ryokaneoka0406/wise/cmd/wise/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
