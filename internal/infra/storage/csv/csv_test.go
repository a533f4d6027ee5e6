package csv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vietddude/fanstats/internal/core/domain"
)

func f64(v float64) *float64 { return &v }

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestSink_WritesRows(t *testing.T) {
	dir := t.TempDir()
	artistsPath := filepath.Join(dir, "data_table.csv")
	tracksPath := filepath.Join(dir, "tracks.csv")

	sink, err := NewSink(artistsPath, tracksPath)
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}

	artists := []domain.Artist{{
		ChartmetricArtistID: 2762,
		Name:                "Ed Sheeran",
		SpotifyPopularity:   f64(92),
		WikipediaViews:      f64(1234.5),
		Stats:               domain.FanStats{AvgSpotifyFollowers: f64(1.5e8)},
	}}
	tracks := []domain.Track{
		{ArtistID: 2762, TrackID: "17", Name: "Shape of You", ReleaseDates: []string{"2017-01-06", "2017-03-03"}},
		{ArtistID: 2762, TrackID: "18", Name: "Perfect, Live"},
	}

	ctx := context.Background()
	if err := sink.WriteTracks(ctx, tracks); err != nil {
		t.Fatalf("WriteTracks failed: %v", err)
	}
	if err := sink.WriteArtists(ctx, artists); err != nil {
		t.Fatalf("WriteArtists failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	lines := readLines(t, artistsPath)
	if len(lines) != 2 {
		t.Fatalf("Expected header and 1 row, got %d lines", len(lines))
	}
	if lines[0] != strings.Join(ArtistColumns, ",") {
		t.Errorf("Unexpected header %q", lines[0])
	}
	want := "2762,Ed Sheeran,150000000,,,,,92,,,,,,,,1234.5,"
	if lines[1] != want {
		t.Errorf("Artist row = %q, want %q", lines[1], want)
	}

	lines = readLines(t, tracksPath)
	if len(lines) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d lines", len(lines))
	}
	if lines[1] != "2762,17,Shape of You,2017-01-06 2017-03-03" {
		t.Errorf("Unexpected track row %q", lines[1])
	}
	if lines[2] != `2762,18,"Perfect, Live",` {
		t.Errorf("Unexpected quoted track row %q", lines[2])
	}
}

func TestSink_AppendsWithoutSecondHeader(t *testing.T) {
	dir := t.TempDir()
	artistsPath := filepath.Join(dir, "data_table.csv")
	tracksPath := filepath.Join(dir, "tracks.csv")

	for i := 0; i < 2; i++ {
		sink, err := NewSink(artistsPath, tracksPath)
		if err != nil {
			t.Fatalf("NewSink failed: %v", err)
		}
		if err := sink.WriteArtists(context.Background(), []domain.Artist{{ChartmetricArtistID: int64(i), Name: "A"}}); err != nil {
			t.Fatalf("WriteArtists failed: %v", err)
		}
		if err := sink.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	lines := readLines(t, artistsPath)
	if len(lines) != 3 {
		t.Fatalf("Expected 1 header and 2 rows, got %d lines: %v", len(lines), lines)
	}
	if lines[2] != "1,A,,,,,,,,,,,,,,," {
		t.Errorf("Unexpected appended row %q", lines[2])
	}
	if got := len(readLines(t, tracksPath)); got != 1 {
		t.Errorf("Expected only the tracks header, got %d lines", got)
	}
}
