package main

import (
	"os"

	"github.com/neco001/Job-Crusher/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
