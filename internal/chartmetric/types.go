package chartmetric

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/vietddude/fanstats/internal/core/domain"
)

// Number is a JSON number that also accepts numeric strings and null.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = Number{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// Non-numeric text is treated like a missing value.
			*n = Number{}
			return nil
		}
		*n = Number{Value: v, Valid: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid number %s: %w", data, err)
	}
	*n = Number{Value: v, Valid: true}
	return nil
}

// Ptr returns the value as a pointer, nil when absent.
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// StatPoint is a single sample of a fan statistic series.
type StatPoint struct {
	Value     Number `json:"value"`
	Timestamp string `json:"timestp"`
}

// FanStats maps a series name (e.g. "followers", "likes") to its samples.
type FanStats map[string][]StatPoint

// UnmarshalJSON keeps the array-valued series and ignores other fields.
func (f *FanStats) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	stats := make(FanStats, len(raw))
	for name, value := range raw {
		if !isArray(value) {
			continue
		}
		var points []StatPoint
		if err := json.Unmarshal(value, &points); err != nil {
			continue
		}
		stats[name] = points
	}
	*f = stats
	return nil
}

// ArtistRecord is an artist entry of the artist list.
type ArtistRecord struct {
	ChartmetricArtistID              int64  `json:"chartmetric_artist_id"`
	Name                             string `json:"name"`
	SpotifyPopularity                Number `json:"spotify_popularity"`
	SpotifyFollowers                 Number `json:"spotify_followers"`
	SpotifyMonthlyListeners          Number `json:"spotify_monthly_listeners"`
	SpotifyListenersToFollowersRatio Number `json:"spotify_listeners_to_followers_ratio"`
	FacebookLikes                    Number `json:"facebook_likes"`
	FacebookTalks                    Number `json:"facebook_talks"`
	YoutubeViews                     Number `json:"youtube_views"`
	YoutubeSubscribers               Number `json:"youtube_subscribers"`
	WikipediaViews                   Number `json:"wikipedia_views"`
	SoundcloudFollowers              Number `json:"soundcloud_followers"`
}

// Domain converts the record into a domain artist.
func (r ArtistRecord) Domain() domain.Artist {
	return domain.Artist{
		ChartmetricArtistID:              r.ChartmetricArtistID,
		Name:                             r.Name,
		SpotifyPopularity:                r.SpotifyPopularity.Ptr(),
		SpotifyFollowers:                 r.SpotifyFollowers.Ptr(),
		SpotifyMonthlyListeners:          r.SpotifyMonthlyListeners.Ptr(),
		SpotifyListenersToFollowersRatio: r.SpotifyListenersToFollowersRatio.Ptr(),
		FacebookLikes:                    r.FacebookLikes.Ptr(),
		FacebookTalks:                    r.FacebookTalks.Ptr(),
		YoutubeViews:                     r.YoutubeViews.Ptr(),
		YoutubeSubscribers:               r.YoutubeSubscribers.Ptr(),
		WikipediaViews:                   r.WikipediaViews.Ptr(),
		SoundcloudFollowers:              r.SoundcloudFollowers.Ptr(),
	}
}

// TrackRecord is an entry of an artist's track list.
type TrackRecord struct {
	ID           json.Number `json:"id"`
	TrackID      json.Number `json:"track_id"`
	Name         string      `json:"name"`
	ReleaseDates []*string   `json:"release_dates"`
}

// Domain converts the record into a domain track. The track id comes from
// "id", falling back to "track_id".
func (r TrackRecord) Domain(artistID int64) domain.Track {
	id := r.ID.String()
	if id == "" {
		id = r.TrackID.String()
	}
	dates := make([]string, 0, len(r.ReleaseDates))
	for _, d := range r.ReleaseDates {
		if d == nil {
			dates = append(dates, "")
			continue
		}
		dates = append(dates, *d)
	}
	return domain.Track{
		ArtistID:     artistID,
		TrackID:      id,
		Name:         r.Name,
		ReleaseDates: dates,
	}
}

// envelope is the common {"obj": ...} response wrapper.
type envelope struct {
	Obj json.RawMessage `json:"obj"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}
