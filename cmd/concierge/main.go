package main

import (
	"os"

	"github.com/zhouzirui/concierge/cmd/concierge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
