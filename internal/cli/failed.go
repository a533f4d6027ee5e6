package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/fanstats/internal/control"
)

var failedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List requests that failed after all retries",
	Run:   runFailedList,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Remove a failed request from the queue",
	Args:  cobra.ExactArgs(1),
	Run:   runFailedResolve,
}

func init() {
	failedCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(failedCmd)
}

func openStores(ctx context.Context) *control.Stores {
	cfg := loadConfig()
	if cfg.Redis.URL == "" && cfg.Database.URL == "" {
		slog.Warn("Neither redis nor database is configured, failed requests are not persisted")
	}
	stores, err := control.OpenStores(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	return stores
}

func runFailedList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	stores := openStores(ctx)
	defer func() {
		_ = stores.Close()
	}()

	records, err := stores.Failed.GetAll(ctx)
	if err != nil {
		slog.Error("Failed to list failed requests", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tENDPOINT\tARTIST\tCODE\tCAUSE\tCREATED\tERROR")
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			r.ID,
			r.Endpoint,
			r.ArtistID,
			r.Code,
			r.CauseKind,
			time.Unix(r.CreatedAt, 0).Format(time.RFC3339),
			r.Error,
		)
	}
	_ = w.Flush()
}

func runFailedResolve(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	stores := openStores(ctx)
	defer func() {
		_ = stores.Close()
	}()

	if err := stores.Failed.MarkResolved(ctx, args[0]); err != nil {
		slog.Error("Failed to resolve", "id", args[0], "error", err)
		os.Exit(1)
	}
	slog.Info("Resolved failed request", "id", args[0])
}
