package main

import (
	"fmt"
	"os"

	"pkt.systems/version"
)

func init() {
	version.SetDefaultModule("github.com/example/kumou")
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}
