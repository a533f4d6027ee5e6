// Package collector walks the artist list and gathers fan statistics and
// tracks for every artist.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/fanstats/internal/chartmetric"
	"github.com/vietddude/fanstats/internal/core/domain"
	"github.com/vietddude/fanstats/internal/infra/api/retry"
	"github.com/vietddude/fanstats/internal/infra/storage"
	"github.com/vietddude/fanstats/internal/metrics"
)

// API is the subset of the Chartmetric client used for collection.
type API interface {
	ArtistsList(ctx context.Context, q chartmetric.ListQuery) ([]chartmetric.ArtistRecord, error)
	ArtistFanStats(ctx context.Context, artistID int64, source, field string) (chartmetric.FanStats, error)
	ArtistTracks(ctx context.Context, artistID int64) ([]chartmetric.TrackRecord, error)
}

// Config holds collection settings.
type Config struct {
	ArtistsNeeded int    `yaml:"artists_needed"`
	PageSize      int    `yaml:"page_size"`
	StartOffset   int    `yaml:"start_offset"`
	QueryType     string `yaml:"query_type"`
	Min           int    `yaml:"min"`
	Max           int    `yaml:"max"`
	Workers       int    `yaml:"workers"`
}

// DefaultConfig collects 6000 artists in pages of 200, one artist at a time.
var DefaultConfig = Config{
	ArtistsNeeded: 6000,
	PageSize:      200,
	QueryType:     "sp_popularity",
	Min:           50,
	Max:           100,
	Workers:       1,
}

// Collector runs one collection.
type Collector struct {
	cfg      Config
	api      API
	sink     storage.ResultSink
	failures storage.FailedRequestRepository
	runID    string
	clock    func() time.Time
	progress *Progress
}

// New creates a collector. failures may be nil, in which case failed
// requests are only logged.
func New(cfg Config, api API, sink storage.ResultSink, failures storage.FailedRequestRepository) *Collector {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultConfig.PageSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueryType == "" {
		cfg.QueryType = DefaultConfig.QueryType
	}

	runID := uuid.NewString()
	now := time.Now()
	return &Collector{
		cfg:      cfg,
		api:      api,
		sink:     sink,
		failures: failures,
		runID:    runID,
		clock:    time.Now,
		progress: newProgress(runID, cfg.ArtistsNeeded/cfg.PageSize, now),
	}
}

// RunID identifies this collection in stored rows and failed requests.
func (c *Collector) RunID() string { return c.runID }

// Progress exposes the live progress of the run.
func (c *Collector) Progress() *Progress { return c.progress }

// Run collects every page. It stops at the first page that cannot be listed
// or written; failures of individual artist requests are recorded and skipped.
func (c *Collector) Run(ctx context.Context) (err error) {
	started := c.clock()
	pages := c.cfg.ArtistsNeeded / c.cfg.PageSize
	defer func() {
		c.progress.finish(err)
		snap := c.progress.Snapshot()
		slog.Info("Collection finished",
			"run_id", c.runID,
			"pages", snap.Pages,
			"artists", snap.Artists,
			"tracks", snap.Tracks,
			"failed", snap.Failed,
			"elapsed", c.clock().Sub(started).Round(time.Millisecond),
		)
	}()

	slog.Info("Collection started", "run_id", c.runID, "pages", pages, "page_size", c.cfg.PageSize, "workers", c.cfg.Workers)

	for idx := 0; idx < pages; idx++ {
		offset := c.cfg.StartOffset + c.cfg.PageSize*idx
		n, err := c.collectPage(ctx, offset)
		if err != nil {
			return err
		}
		if n == 0 {
			slog.Info("Artist list exhausted", "offset", offset)
			return nil
		}
	}
	return nil
}

// collectPage collects one page and returns the number of artists listed.
func (c *Collector) collectPage(ctx context.Context, offset int) (int, error) {
	records, err := c.api.ArtistsList(ctx, chartmetric.ListQuery{
		QueryType: c.cfg.QueryType,
		Min:       c.cfg.Min,
		Max:       c.cfg.Max,
		Offset:    offset,
	})
	if err != nil {
		return 0, fmt.Errorf("list artists at offset %d: %w", offset, err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	artists := make([]domain.Artist, len(records))
	tracks := make([][]domain.Track, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i, rec := range records {
		g.Go(func() error {
			artist, artistTracks, err := c.collectArtist(gctx, rec)
			if err != nil {
				return err
			}
			artists[i] = artist
			tracks[i] = artistTracks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("collect page at offset %d: %w", offset, err)
	}

	var flat []domain.Track
	for _, t := range tracks {
		flat = append(flat, t...)
	}
	if err := c.sink.WriteTracks(ctx, flat); err != nil {
		return 0, fmt.Errorf("write tracks at offset %d: %w", offset, err)
	}
	if err := c.sink.WriteArtists(ctx, artists); err != nil {
		return 0, fmt.Errorf("write artists at offset %d: %w", offset, err)
	}

	metrics.PagesCollected.Inc()
	metrics.ArtistsCollected.Add(float64(len(artists)))
	metrics.TracksCollected.Add(float64(len(flat)))
	c.progress.pageDone(offset, len(artists), len(flat))

	slog.Info("Collected page", "offset", offset, "artists", len(artists), "tracks", len(flat))
	return len(records), nil
}

// collectArtist enriches one artist with fan statistics and lists its tracks.
func (c *Collector) collectArtist(ctx context.Context, rec chartmetric.ArtistRecord) (domain.Artist, []domain.Track, error) {
	artist := rec.Domain()
	artist.RunID = c.runID
	id := artist.ChartmetricArtistID

	for _, s := range statSources {
		stats, err := c.api.ArtistFanStats(ctx, id, string(s.source), "")
		if err := c.handleFailure(ctx, "artist_fan_stats/"+string(s.source), id, err); err != nil {
			return artist, nil, err
		}
		if stats != nil {
			artist.Stats.Merge(s.aggregate(stats))
		}
	}

	records, err := c.api.ArtistTracks(ctx, id)
	if err := c.handleFailure(ctx, "artist_tracks", id, err); err != nil {
		return artist, nil, err
	}

	tracks := make([]domain.Track, 0, len(records))
	for _, r := range records {
		t := r.Domain(id)
		t.RunID = c.runID
		tracks = append(tracks, t)
	}

	slog.Debug("Collected artist", "artist_id", id, "name", artist.Name, "tracks", len(tracks))
	return artist, tracks, nil
}

// handleFailure parks a FailedRequest in the dead-letter queue and swallows
// it. An unreported error body leaves the fields blank. Any other error is
// returned.
func (c *Collector) handleFailure(ctx context.Context, endpoint string, artistID int64, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, chartmetric.ErrNoContent) {
		slog.Debug("No content for artist", "endpoint", endpoint, "artist_id", artistID)
		return nil
	}
	fr, ok := retry.AsFailedRequest(err)
	if !ok {
		return err
	}

	c.progress.failed()
	slog.Warn("Skipping failed request",
		"endpoint", endpoint,
		"artist_id", artistID,
		"code", fr.Code,
		"cause", fr.CauseKind,
		"error", fr.Message,
	)

	if c.failures == nil {
		return nil
	}

	now := c.clock().Unix()
	record := &domain.FailedRequest{
		ID:          uuid.NewString(),
		RunID:       c.runID,
		Endpoint:    endpoint,
		Target:      fr.Target,
		ArtistID:    artistID,
		Code:        fr.Code,
		CauseKind:   string(fr.CauseKind),
		Error:       fr.Error(),
		Status:      domain.FailedRequestStatusPending,
		LastAttempt: now,
		CreatedAt:   now,
	}
	if addErr := c.failures.Add(ctx, record); addErr != nil {
		if errors.Is(addErr, context.Canceled) {
			return addErr
		}
		slog.Error("Failed to record failed request", "endpoint", endpoint, "artist_id", artistID, "error", addErr)
		return nil
	}
	metrics.FailedRequests.Inc()
	return nil
}
