package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := buildRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "modelbridge:", err)
		os.Exit(1)
	}
}
