// Command csvload decodes the CSV files named by a pipeline config and bulk
// loads them into the configured database table.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"csvplan/internal/config"
	"csvplan/internal/metrics"
	"csvplan/internal/metrics/datadog"
	"csvplan/internal/metrics/prompush"
	"csvplan/internal/pipeline"

	// register all backends with the storage factory.
	_ "csvplan/internal/storage/all"

	"github.com/fatih/color"
)

var (
	errc  = color.New(color.FgRed, color.Bold).SprintfFunc()
	warnc = color.New(color.FgYellow).SprintfFunc()
	okc   = color.New(color.FgGreen, color.Bold).SprintfFunc()
)

func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		statsdAddrFlg     string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "pipeline.json", "pipeline config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (overrides env METRICS_BACKEND)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&statsdAddrFlg, "statsd-addr", "", "DogStatsD address (overrides env DD_DOGSTATSD_URL)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	if !*verbose {
		log.SetOutput(io.Discard)
	}

	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	if !reportIssues(os.Stderr, config.ValidatePipeline(p)) {
		fatalf("configuration is invalid: %s", cfgPath)
	}
	if validate {
		fmt.Fprintln(os.Stderr, okc("configuration is valid: %s", cfgPath))
		return
	}

	backend := pick(metricsBackendFlg, os.Getenv("METRICS_BACKEND"), "none")
	flush := setupMetrics(backend, p.Job,
		pick(pushGatewayURLFlg, os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091"),
		pick(statsdAddrFlg, os.Getenv("DD_DOGSTATSD_URL"), "127.0.0.1:8125"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := pipeline.Run(ctx, p)
	flush()
	printSummary(os.Stdout, p, sum)
	if err != nil {
		fatalf("%v", err)
	}
}

// reportIssues prints validation findings and reports whether the config is
// usable (no errors).
func reportIssues(w io.Writer, issues []config.Issue) bool {
	for _, iss := range issues {
		line := fmt.Sprintf("%s: %s: %s", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			fmt.Fprintln(w, errc("%s", line))
		} else {
			fmt.Fprintln(w, warnc("%s", line))
		}
	}
	return !config.HasErrors(issues)
}

// setupMetrics installs the named backend and returns its flush function.
// Failures leave the nop backend in place.
func setupMetrics(name, job, gwURL, statsdAddr string) func() {
	nop := func() {}
	if job == "" {
		job = "csvload"
	}

	var b metrics.Backend
	switch strings.ToLower(name) {
	case "pushgateway", "prometheus":
		pb, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return nop
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, name, job)
		b = pb
	case "datadog", "statsd":
		db, err := datadog.NewBackend(datadog.Config{
			Addr:       statsdAddr,
			GlobalTags: []string{"job:" + job},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return nop
		}
		log.Printf("metrics: addr=%v, backend=%v, job_name=%v", statsdAddr, name, job)
		b = db
	case "", "none":
		return nop
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", name)
		return nop
	}

	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

func printSummary(w io.Writer, p config.Pipeline, s pipeline.Summary) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %s → %s %s\n", bold("job"), p.Job, p.Storage.Kind, p.Storage.DB.Table)
	fmt.Fprintf(w, "  files        %d\n", s.Files)
	fmt.Fprintf(w, "  decoded      %d\n", s.Rows)
	if s.FieldErrors > 0 {
		fmt.Fprintf(w, "  rejected     %s\n", warnc("%d", s.FieldErrors))
	} else {
		fmt.Fprintf(w, "  rejected     0\n")
	}
	fmt.Fprintf(w, "  inserted     %s\n", okc("%d", s.Inserted))
	fmt.Fprintf(w, "  batches      %d\n", s.Batches)
	fmt.Fprintf(w, "  plans        %d compiled, %d cached\n", s.Plans.Compiled, s.Plans.Cached)
	fmt.Fprintf(w, "  elapsed      %s\n", s.Elapsed.Truncate(time.Millisecond))
}

// pick returns the first non-empty value.
func pick(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func fatalf(format string, a ...any) {
	fmt.Fprintln(os.Stderr, errc(format, a...))
	os.Exit(1)
}
