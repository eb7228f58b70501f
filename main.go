package main

import (
	"os"

	"github.com/wfunc/stemarena/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
