// Package csv appends collected rows to CSV files.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/vietddude/fanstats/internal/core/domain"
)

// ArtistColumns is the header of the artists file.
var ArtistColumns = []string{
	"chartmetric_artist_id",
	"name",
	"avg_spotify_followers",
	"avg_fb_engagement",
	"avg_fb_likes",
	"avg_youtube_subscribers",
	"avg_youtube_engagement",
	"spotify_popularity",
	"spotify_followers",
	"spotify_monthly_listeners",
	"spotify_listeners_to_followers_ratio",
	"facebook_likes",
	"facebook_talks",
	"youtube_views",
	"youtube_subscribers",
	"wikipedia_views",
	"soundcloud_followers",
}

// TrackColumns is the header of the tracks file.
var TrackColumns = []string{"artist_id", "track_id", "name", "release_dates"}

// Sink writes artists and tracks to two CSV files opened in append mode.
// The header is written only when a file is created.
type Sink struct {
	mu      sync.Mutex
	artists *file
	tracks  *file
}

type file struct {
	f *os.File
	w *csv.Writer
}

func openFile(path string, header []string) (*file, error) {
	_, statErr := os.Stat(path)
	created := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if created {
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header to %s: %w", path, err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header to %s: %w", path, err)
		}
	}
	return &file{f: f, w: w}, nil
}

// NewSink opens (or creates) the artists and tracks files.
func NewSink(artistsPath, tracksPath string) (*Sink, error) {
	artists, err := openFile(artistsPath, ArtistColumns)
	if err != nil {
		return nil, err
	}
	tracks, err := openFile(tracksPath, TrackColumns)
	if err != nil {
		artists.f.Close()
		return nil, err
	}
	return &Sink{artists: artists, tracks: tracks}, nil
}

// WriteArtists appends one row per artist.
func (s *Sink) WriteArtists(ctx context.Context, artists []domain.Artist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range artists {
		if err := s.artists.w.Write(artistRow(a)); err != nil {
			return fmt.Errorf("write artist %d: %w", a.ChartmetricArtistID, err)
		}
	}
	s.artists.w.Flush()
	return s.artists.w.Error()
}

// WriteTracks appends one row per track.
func (s *Sink) WriteTracks(ctx context.Context, tracks []domain.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tracks {
		row := []string{
			strconv.FormatInt(t.ArtistID, 10),
			t.TrackID,
			t.Name,
			strings.Join(t.ReleaseDates, " "),
		}
		if err := s.tracks.w.Write(row); err != nil {
			return fmt.Errorf("write track %s: %w", t.TrackID, err)
		}
	}
	s.tracks.w.Flush()
	return s.tracks.w.Error()
}

// Close flushes and closes both files.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, f := range []*file{s.artists, s.tracks} {
		f.w.Flush()
		errs = append(errs, f.w.Error(), f.f.Close())
	}
	return errors.Join(errs...)
}

func artistRow(a domain.Artist) []string {
	return []string{
		strconv.FormatInt(a.ChartmetricArtistID, 10),
		a.Name,
		format(a.Stats.AvgSpotifyFollowers),
		format(a.Stats.AvgFBEngagement),
		format(a.Stats.AvgFBLikes),
		format(a.Stats.AvgYoutubeSubscribers),
		format(a.Stats.AvgYoutubeEngagement),
		format(a.SpotifyPopularity),
		format(a.SpotifyFollowers),
		format(a.SpotifyMonthlyListeners),
		format(a.SpotifyListenersToFollowersRatio),
		format(a.FacebookLikes),
		format(a.FacebookTalks),
		format(a.YoutubeViews),
		format(a.YoutubeSubscribers),
		format(a.WikipediaViews),
		format(a.SoundcloudFollowers),
	}
}

func format(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
