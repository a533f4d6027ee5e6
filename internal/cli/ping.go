package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/fanstats/internal/chartmetric"
	"github.com/vietddude/fanstats/internal/control"
	"github.com/vietddude/fanstats/internal/infra/api/retry"
)

var pingTrack string

var errEmptyResponse = errors.New("empty response")

var pingCmd = &cobra.Command{
	Use:   "ping [artist-id]",
	Short: "Check credentials by fetching one artist",
	Args:  cobra.MaximumNArgs(1),
	Run:   runPing,
}

func init() {
	pingCmd.Flags().StringVar(&pingTrack, "track", "", "fetch this track id instead of an artist")
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	artistID := int64(2000)
	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			slog.Error("Invalid artist id", "id", args[0], "error", err)
			os.Exit(1)
		}
		artistID = id
	}

	// One attempt, no waiting
	zero := 0
	cfg.Retry.MaxAttempts = &zero

	client, err := control.NewChartmetric(cfg, nil)
	if err != nil {
		slog.Error("Failed to create client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	what, name, err := ping(ctx, client.Client(), artistID, pingTrack)
	if err != nil {
		if fr, ok := retry.AsFailedRequest(err); ok {
			slog.Error("Ping failed", "target", what, "code", fr.Code, "cause", fr.CauseKind, "error", fr.Message)
		} else {
			slog.Error("Ping failed", "target", what, "error", err)
		}
		os.Exit(1)
	}
	fmt.Printf("OK: %s %q\n", what, name)
}

// ping fetches one track when trackID is set, otherwise one artist, and
// returns what was fetched and its name. An empty response is an error.
func ping(ctx context.Context, client *chartmetric.Client, artistID int64, trackID string) (string, string, error) {
	var (
		what string
		obj  json.RawMessage
		err  error
	)
	if trackID != "" {
		what = "track " + trackID
		obj, err = client.TrackDetail(ctx, trackID)
	} else {
		what = "artist " + strconv.FormatInt(artistID, 10)
		obj, err = client.ArtistMeta(ctx, artistID)
	}
	if err != nil {
		return what, "", err
	}
	if obj == nil {
		return what, "", errEmptyResponse
	}

	var meta struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(obj, &meta); err != nil {
		return what, "", fmt.Errorf("decode %s: %w", what, err)
	}
	return what, meta.Name, nil
}
