// Command lrubench runs a synthetic workload against the sharded LRU cache
// (or a single-lock baseline) and exposes optional pprof/Prometheus endpoints.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
