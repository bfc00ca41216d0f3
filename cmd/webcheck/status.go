package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/webcheck/internal/registry"
	"github.com/hazz-dev/webcheck/internal/storage"
)

type statusStore interface {
	Load(ctx context.Context) (registry.Snapshot, error)
}

func executeStatus(cmd *cobra.Command, store statusStore) error {
	out := cmd.OutOrStdout()
	snap, err := store.Load(context.Background())
	if errors.Is(err, storage.ErrNoSnapshot) {
		fmt.Fprintln(out, "No saved state. Run 'webcheck serve' first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	fmt.Fprintf(out, "check every %ds, refresh every %ds\n\n", snap.Config.CheckInterval, snap.Config.RefreshInterval)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "URL\tSTATUS\tCODE\tRESPONSE\tJITTER\tLAST CHECKED")
	for _, r := range snap.Resources {
		jitter := "—"
		if r.Jitter != nil {
			jitter = fmt.Sprintf("%.4f", *r.Jitter)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.URL,
			r.Status,
			codeText(r.StatusCode),
			msText(r.ResponseTime),
			jitter,
			r.LastChecked.Local().Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()
	return nil
}
