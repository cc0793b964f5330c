package main

import (
	"flag"
	"io"
	"slices"

	"github.com/cockroachdb/errors"
)

var structures = []string{"map", "queue", "stack", "list"}

type config struct {
	structure   string
	goroutines  int
	ops         int //per goroutine.
	keys        int
	json        bool
	metricsAddr string
}

var errConfig = errors.New("invalid configuration")

func parseFlags(args []string, out io.Writer) (config, error) {
	var c config
	fs := flag.NewFlagSet("lfstress", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&c.structure, "structure", "map", "structure under test: map, queue, stack or list")
	fs.IntVar(&c.goroutines, "goroutines", 8, "number of concurrent workers")
	fs.IntVar(&c.ops, "ops", 1<<16, "operations per worker")
	fs.IntVar(&c.keys, "keys", 1<<10, "key space of the mixed map and list workload")
	fs.BoolVar(&c.json, "json", false, "print the report as JSON")
	fs.StringVar(&c.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running, e.g. :9090")
	if err := fs.Parse(args); err != nil {
		return c, err
	}
	return c, c.validate()
}

func (c config) validate() error {
	if !slices.Contains(structures, c.structure) {
		return errors.Wrapf(errConfig, "unknown structure %q", c.structure)
	}
	if c.goroutines < 1 {
		return errors.Wrapf(errConfig, "%d goroutines", c.goroutines)
	}
	if c.ops < 1 {
		return errors.Wrapf(errConfig, "%d operations per goroutine", c.ops)
	}
	if c.keys < 1 {
		return errors.Wrapf(errConfig, "key space of %d", c.keys)
	}
	return nil
}
