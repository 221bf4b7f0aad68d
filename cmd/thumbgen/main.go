package main

import (
	"os"

	"thumbcache/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Close()
		os.Exit(1)
	}
	logging.Close()
}
