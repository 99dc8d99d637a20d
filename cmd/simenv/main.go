package main

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/giantswarm/simenv/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
