package main

import (
	"os"

	"github.com/router-for-me/CloudAccountsBusiness/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
