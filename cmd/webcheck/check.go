package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/webcheck/internal/checker"
	"github.com/hazz-dev/webcheck/internal/config"
	"github.com/hazz-dev/webcheck/internal/registry"
)

func executeCheck(cmd *cobra.Command, cfg *config.Config, urls []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return runChecks(ctx, cmd.OutOrStdout(), checker.NewHTTPProber(cfg.Probe.Timeout.Duration), urls)
}

// runChecks probes every URL concurrently and prints one row per URL in
// the given order. Nothing is persisted.
func runChecks(ctx context.Context, out io.Writer, prober checker.Prober, urls []string) error {
	results := make([]registry.Resource, len(urls))
	errs := make([]string, len(urls))
	var wg sync.WaitGroup

	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			res := prober.Probe(ctx, u)
			results[i] = registry.Merge(nil, u, res.Observation, res.CheckedAt)
			errs[i] = res.Error
		}(i, u)
	}
	wg.Wait()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "URL\tSTATUS\tCODE\tRESPONSE\tERROR")
	allUp := true
	for i, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.URL,
			r.Status,
			codeText(r.StatusCode),
			msText(r.ResponseTime),
			errs[i],
		)
		if r.Status != registry.StatusUp {
			allUp = false
		}
	}
	w.Flush()

	if !allUp {
		return fmt.Errorf("one or more resources are down")
	}
	return nil
}

func codeText(code *int) string {
	if code == nil {
		return "—"
	}
	return strconv.Itoa(*code)
}

func msText(ms *int64) string {
	if ms == nil {
		return "—"
	}
	return strconv.FormatInt(*ms, 10) + "ms"
}
