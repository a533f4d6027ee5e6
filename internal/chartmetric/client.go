// Package chartmetric implements the Chartmetric endpoints used for collection.
package chartmetric

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/vietddude/fanstats/internal/infra/api"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.chartmetric.com/api"

// ErrMissingRefreshToken is returned when no refresh token is configured.
var ErrMissingRefreshToken = errors.New("need to set CHARTMETRIC_REFRESH_TOKEN")

// ErrNoContent is returned when the API answered with an error body that the
// retry policy did not report. Callers decide whether that is missing data or
// a failure.
var ErrNoContent = errors.New("api returned an error body instead of content")

// ListQuery selects a page of the artist list.
type ListQuery struct {
	QueryType string
	Min       int
	Max       int
	Offset    int
}

// DefaultListQuery lists artists by Spotify popularity between 50 and 100.
func DefaultListQuery() ListQuery {
	return ListQuery{QueryType: "sp_popularity", Min: 50, Max: 100}
}

// Client exposes typed Chartmetric endpoints over an api.Client.
type Client struct {
	api    *api.Client
	tokens *TokenSource
	clock  func() time.Time
}

// NewClient wires a token source into apiClient and returns the endpoint client.
func NewClient(apiClient *api.Client, refreshToken string, clock func() time.Time) (*Client, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}
	if clock == nil {
		clock = time.Now
	}
	tokens := NewTokenSource(apiClient, refreshToken, clock)
	apiClient.SetHeaderSource(tokens)
	return &Client{api: apiClient, tokens: tokens, clock: clock}, nil
}

// Tokens returns the token source used for authenticated calls.
func (c *Client) Tokens() *TokenSource { return c.tokens }

// ArtistsList returns one page of artists. An empty list means the end of the
// listing; a page the API declined to serve returns ErrNoContent.
func (c *Client) ArtistsList(ctx context.Context, q ListQuery) ([]ArtistRecord, error) {
	if q.QueryType == "" {
		q.QueryType = DefaultListQuery().QueryType
	}
	path := fmt.Sprintf("artist/%s/list", url.PathEscape(q.QueryType))
	query := httpize(map[string]any{"min": q.Min, "max": q.Max, "offset": q.Offset})

	obj, err := c.getObj(ctx, api.Get("artists_list", path, query))
	if err != nil || obj == nil {
		return nil, err
	}

	// The list is either the object itself or nested under "data".
	var artists []ArtistRecord
	if isArray(obj) {
		if err := json.Unmarshal(obj, &artists); err != nil {
			return nil, fmt.Errorf("decode artists list: %w", err)
		}
		return artists, nil
	}
	var page struct {
		Data []ArtistRecord `json:"data"`
	}
	if err := json.Unmarshal(obj, &page); err != nil {
		return nil, fmt.Errorf("decode artists list: %w", err)
	}
	return page.Data, nil
}

// ArtistMeta returns the raw metadata object of an artist.
func (c *Client) ArtistMeta(ctx context.Context, artistID int64) (json.RawMessage, error) {
	if artistID == 0 {
		return nil, nil
	}
	return c.getObj(ctx, api.Get("artist_meta", "artist/"+strconv.FormatInt(artistID, 10), nil))
}

// ArtistFanStats returns fan statistics of an artist on source for the
// previous calendar month. field optionally narrows the series.
func (c *Client) ArtistFanStats(ctx context.Context, artistID int64, source, field string) (FanStats, error) {
	if artistID == 0 {
		return nil, nil
	}
	since, until := PreviousMonth(c.clock())
	params := map[string]any{
		"since": since.Format(time.DateOnly),
		"until": until.Format(time.DateOnly),
	}
	if field != "" {
		params["field"] = field
	}
	path := fmt.Sprintf("artist/%d/stat/%s", artistID, url.PathEscape(source))

	obj, err := c.getObj(ctx, api.Get("artist_fan_stats", path, httpize(params)))
	if err != nil || obj == nil {
		return nil, err
	}
	var stats FanStats
	if err := json.Unmarshal(obj, &stats); err != nil {
		return nil, fmt.Errorf("decode %s fan stats: %w", source, err)
	}
	return stats, nil
}

// ArtistTracks returns the tracks of an artist.
func (c *Client) ArtistTracks(ctx context.Context, artistID int64) ([]TrackRecord, error) {
	if artistID == 0 {
		return nil, nil
	}
	obj, err := c.getObj(ctx, api.Get("artist_tracks", fmt.Sprintf("artist/%d/tracks", artistID), nil))
	if err != nil || obj == nil {
		return nil, err
	}
	var tracks []TrackRecord
	if err := json.Unmarshal(obj, &tracks); err != nil {
		return nil, fmt.Errorf("decode artist tracks: %w", err)
	}
	return tracks, nil
}

// TrackDetail returns the raw metadata object of a track.
func (c *Client) TrackDetail(ctx context.Context, trackID string) (json.RawMessage, error) {
	if trackID == "" || trackID == "0" {
		return nil, nil
	}
	return c.getObj(ctx, api.Get("track_detail", "track/"+url.PathEscape(trackID), nil))
}

// getObj performs call and unwraps the "obj" field. A null obj yields nil;
// a swallowed error response yields ErrNoContent.
func (c *Client) getObj(ctx context.Context, call api.Call) (json.RawMessage, error) {
	var env envelope
	found, err := c.api.DoJSON(ctx, call, &env)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", call.Endpoint, ErrNoContent)
	}
	if len(env.Obj) == 0 || bytes.Equal(env.Obj, []byte("null")) {
		return nil, nil
	}
	return env.Obj, nil
}

// PreviousMonth returns the first and last day of the month before now.
func PreviousMonth(now time.Time) (time.Time, time.Time) {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	until := firstOfMonth.AddDate(0, 0, -1)
	since := time.Date(until.Year(), until.Month(), 1, 0, 0, 0, 0, now.Location())
	return since, until
}

// httpize converts query parameters to strings; booleans become "1" or "0".
func httpize(params map[string]any) url.Values {
	if params == nil {
		return nil
	}
	values := make(url.Values, len(params))
	for k, v := range params {
		switch val := v.(type) {
		case bool:
			if val {
				values.Set(k, "1")
			} else {
				values.Set(k, "0")
			}
		case string:
			values.Set(k, val)
		default:
			values.Set(k, fmt.Sprint(val))
		}
	}
	return values
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
