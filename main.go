package main

import (
	"fmt"
	"os"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var err error
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		err = runServe(os.Args[2:])
	} else {
		err = runCLI(os.Args[1:])
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "cutout:", err)
		os.Exit(1)
	}
}
