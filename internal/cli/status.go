package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/fanstats/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored row counts and pending failed requests",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx := context.Background()
	stores, err := control.OpenStores(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = stores.Close()
	}()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ITEM\tCOUNT")

	if stores.Results != nil {
		artists, tracks, err := stores.Results.Counts(ctx)
		if err != nil {
			slog.Error("Failed to count results", "error", err)
			os.Exit(1)
		}
		_, _ = fmt.Fprintf(w, "artists\t%d\n", artists)
		_, _ = fmt.Fprintf(w, "tracks\t%d\n", tracks)
	} else {
		slog.Warn("No database configured, result counts unavailable")
	}

	failed, err := stores.Failed.Count(ctx)
	if err != nil {
		slog.Error("Failed to count failed requests", "error", err)
		os.Exit(1)
	}
	_, _ = fmt.Fprintf(w, "failed requests\t%d\n", failed)
	_ = w.Flush()
}
