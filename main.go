package main

import (
	"os"

	"github.com/vzahanych/forecast-client-demo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
