package main

import (
	"os"

	"github.com/giho-tech/helpdesk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
