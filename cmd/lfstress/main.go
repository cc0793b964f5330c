// Command lfstress runs a concurrent workload against one of the lock-free structures, verifies its invariants afterwards and reports throughput and the state of the hazard domain.
//
// Usage:
//
//	lfstress -structure map -goroutines 16 -ops 100000
//	lfstress -structure queue -json
//	lfstress -structure list -metrics-addr :9090
//
// The exit status is 1 if a check failed.
package main

import (
	"flag"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/g-m-twostay/go-lockfree/Hazard"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sugawarayuuta/sonnet"
)

type report struct {
	Structure  string       `json:"structure"`
	Goroutines int          `json:"goroutines"`
	Ops        int          `json:"ops"`
	Elapsed    float64      `json:"elapsed_ms"`
	OpsPerSec  float64      `json:"ops_per_sec"`
	Checks     []check      `json:"checks"`
	Hazard     Hazard.Stats `json:"hazard"`
}

func (r report) passed() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("lfstress: ")
	c, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
	r, err := run(c, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if !r.passed() {
		os.Exit(1)
	}
}

func serveMetrics(addr string, m *metrics) (io.Closer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "metrics listener on %s", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server: %v", err)
		}
	}()
	log.Printf("serving metrics on http://%s/metrics", ln.Addr())
	return srv, nil
}

func run(c config, out io.Writer) (report, error) {
	w := newWorkload(c.structure)
	m := newMetrics(c.structure, w.Stats)
	if c.metricsAddr != "" {
		srv, err := serveMetrics(c.metricsAddr, m)
		if err != nil {
			return report{}, err
		}
		defer srv.Close()
	}

	start := time.Now()
	checks := w.run(c, m)
	elapsed := time.Since(start)

	// every goroutine has released its record, so a single pass must free everything.
	w.Reclaim()
	st := w.Stats()
	checks = append(checks, expect("reclamation converged", st.Retired == 0, "%d retired nodes left", st.Retired))

	r := report{
		Structure:  c.structure,
		Goroutines: c.goroutines,
		Ops:        c.ops,
		Elapsed:    float64(elapsed.Microseconds()) / 1e3,
		OpsPerSec:  float64(c.goroutines*c.ops) / elapsed.Seconds(),
		Checks:     checks,
		Hazard:     st,
	}
	if c.json {
		b, err := sonnet.Marshal(r)
		if err != nil {
			return r, errors.Wrap(err, "encoding report")
		}
		_, err = out.Write(append(b, '\n'))
		return r, err
	}
	l := log.New(out, "", 0)
	l.Printf("%s: %d goroutines x %d ops in %.1fms (%.0f ops/s)", r.Structure, r.Goroutines, r.Ops, r.Elapsed, r.OpsPerSec)
	for _, ch := range r.Checks {
		status := "ok"
		if !ch.OK {
			status = "FAIL"
		}
		l.Printf("  %-4s %s %s", status, ch.Name, ch.Detail)
	}
	l.Printf("  hazard: %d records, %d slots, %d reclaimed, %d retired", st.Records, st.Slots, st.Reclaimed, st.Retired)
	return r, nil
}
