package main

import (
	"os"

	"katydid-common-crud/cmd/katydid-crud/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
