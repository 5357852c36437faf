package main

import (
	"os"

	"github.com/ckpayment/ckmodal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
