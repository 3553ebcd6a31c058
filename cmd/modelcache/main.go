package main

import (
	"fmt"
	"os"
)

func main() {
	if err := buildRootCmd(os.Getenv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "modelcache:", err)
		os.Exit(1)
	}
}
