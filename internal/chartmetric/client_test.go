package chartmetric

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/fanstats/internal/infra/api"
	"github.com/vietddude/fanstats/internal/infra/api/admission"
	"github.com/vietddude/fanstats/internal/infra/api/retry"
	"github.com/vietddude/fanstats/internal/infra/api/transport"
)

// mockAPI emulates the endpoints used by the collector.
type mockAPI struct {
	t          *testing.T
	mu         sync.Mutex
	tokenCalls int
	queries    map[string]string
}

func (m *mockAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.URL.Path == "/api/token" {
		m.tokenCalls++
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refreshtoken"] != "refresh-me" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"bad refresh token"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"access-1","expires_in":3600}`))
		return
	}

	if r.Header.Get("Authorization") != "Bearer access-1" {
		m.t.Errorf("missing bearer token on %s", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		return
	}
	m.queries[r.URL.Path] = r.URL.RawQuery

	switch r.URL.Path {
	case "/api/artist/sp_popularity/list":
		_, _ = w.Write([]byte(`{"obj":{"data":[
			{"chartmetric_artist_id":1,"name":"One","spotify_popularity":71,"spotify_followers":"1200","wikipedia_views":null},
			{"chartmetric_artist_id":2,"name":"Two"}
		]}}`))
	case "/api/artist/cm_artist_rank/list":
		_, _ = w.Write([]byte(`{"obj":[{"chartmetric_artist_id":3,"name":"Three"}]}`))
	case "/api/artist/1/stat/spotify":
		_, _ = w.Write([]byte(`{"obj":{"followers":[{"value":100,"timestp":"2024-04-01"},{"value":null}],"listeners":[{"value":5}],"is_verified":true}}`))
	case "/api/artist/1/tracks":
		_, _ = w.Write([]byte(`{"obj":[{"id":10,"name":"Song","release_dates":["2020-01-01",null]},{"track_id":11,"name":"Other","release_dates":[]}]}`))
	case "/api/artist/1":
		_, _ = w.Write([]byte(`{"obj":{"name":"One"}}`))
	case "/api/track/10":
		_, _ = w.Write([]byte(`{"obj":null}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[{"detail":"not found"}]}`))
	}
}

func newTestClient(t *testing.T, clock func() time.Time) (*Client, *mockAPI) {
	t.Helper()
	mock := &mockAPI{t: t, queries: make(map[string]string)}
	server := httptest.NewServer(mock)
	t.Cleanup(server.Close)

	apiClient := api.NewClient(
		server.URL+"/api",
		transport.NewHTTPTransport(5*time.Second),
		admission.NewTokenBucket(1000, 1000),
		retry.DefaultPolicy(),
	)
	client, err := NewClient(apiClient, "refresh-me", clock)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client, mock
}

func TestNewClient_RequiresRefreshToken(t *testing.T) {
	apiClient := api.NewClient("http://localhost", transport.NewHTTPTransport(time.Second),
		admission.NewTokenBucket(1, 1), retry.DefaultPolicy())
	if _, err := NewClient(apiClient, "", nil); !errors.Is(err, ErrMissingRefreshToken) {
		t.Errorf("Expected ErrMissingRefreshToken, got %v", err)
	}
}

func TestClient_ArtistsList(t *testing.T) {
	client, mock := newTestClient(t, nil)
	ctx := context.Background()

	artists, err := client.ArtistsList(ctx, ListQuery{QueryType: "sp_popularity", Min: 50, Max: 100, Offset: 200})
	if err != nil {
		t.Fatalf("ArtistsList failed: %v", err)
	}
	if len(artists) != 2 {
		t.Fatalf("Expected 2 artists, got %d", len(artists))
	}
	if got := mock.queries["/api/artist/sp_popularity/list"]; got != "max=100&min=50&offset=200" {
		t.Errorf("Unexpected query %q", got)
	}

	a := artists[0].Domain()
	if a.ChartmetricArtistID != 1 || a.Name != "One" {
		t.Errorf("Unexpected artist %+v", a)
	}
	if a.SpotifyFollowers == nil || *a.SpotifyFollowers != 1200 {
		t.Errorf("Expected numeric string to decode, got %v", a.SpotifyFollowers)
	}
	if a.WikipediaViews != nil {
		t.Errorf("Expected null to stay nil")
	}

	flat, err := client.ArtistsList(ctx, ListQuery{QueryType: "cm_artist_rank"})
	if err != nil || len(flat) != 1 || flat[0].ChartmetricArtistID != 3 {
		t.Errorf("Expected array-shaped list, got %v, %v", flat, err)
	}
}

func TestClient_TokenCached(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	client, mock := newTestClient(t, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := client.ArtistMeta(ctx, 1); err != nil {
			t.Fatalf("ArtistMeta failed: %v", err)
		}
	}
	if mock.tokenCalls != 1 {
		t.Errorf("Expected 1 token refresh, got %d", mock.tokenCalls)
	}

	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()

	if _, err := client.ArtistMeta(ctx, 1); err != nil {
		t.Fatalf("ArtistMeta failed: %v", err)
	}
	if mock.tokenCalls != 2 {
		t.Errorf("Expected refresh after expiry, got %d", mock.tokenCalls)
	}
}

// memoryTokenCache is a TokenCache shared by test clients.
type memoryTokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	stores    int
}

func (c *memoryTokenCache) Load(ctx context.Context) (string, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.expiresAt, nil
}

func (c *memoryTokenCache) Store(ctx context.Context, token string, expiresAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token, c.expiresAt = token, expiresAt
	c.stores++
	return nil
}

func TestTokenSource_SharedCache(t *testing.T) {
	cache := &memoryTokenCache{}
	ctx := context.Background()

	first, mock := newTestClient(t, nil)
	first.Tokens().SetCache(cache)
	if _, err := first.ArtistMeta(ctx, 1); err != nil {
		t.Fatalf("ArtistMeta failed: %v", err)
	}
	if cache.stores != 1 || cache.token != "access-1" {
		t.Fatalf("Expected refreshed token to be cached, got %+v", cache)
	}

	second, secondMock := newTestClient(t, nil)
	second.Tokens().SetCache(cache)
	if _, err := second.ArtistMeta(ctx, 1); err != nil {
		t.Fatalf("ArtistMeta failed: %v", err)
	}
	if secondMock.tokenCalls != 0 {
		t.Errorf("Expected cached token to be reused, got %d refreshes", secondMock.tokenCalls)
	}
	if mock.tokenCalls != 1 {
		t.Errorf("Expected 1 refresh on first client, got %d", mock.tokenCalls)
	}
}

func TestClient_ArtistFanStats(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC) }
	client, mock := newTestClient(t, clock)

	stats, err := client.ArtistFanStats(context.Background(), 1, "spotify", "followers")
	if err != nil {
		t.Fatalf("ArtistFanStats failed: %v", err)
	}
	if len(stats["followers"]) != 2 {
		t.Fatalf("Expected 2 follower samples, got %v", stats)
	}
	if stats["followers"][1].Value.Valid {
		t.Error("Expected null sample to be invalid")
	}
	if _, ok := stats["is_verified"]; ok {
		t.Error("Expected non-series fields to be dropped")
	}
	if got := mock.queries["/api/artist/1/stat/spotify"]; got != "field=followers&since=2024-04-01&until=2024-04-30" {
		t.Errorf("Unexpected query %q", got)
	}

	// Unknown source answers 404 with a JSON body: no stats, ErrNoContent.
	stats, err = client.ArtistFanStats(context.Background(), 1, "instagram", "")
	if !errors.Is(err, ErrNoContent) || stats != nil {
		t.Errorf("Expected ErrNoContent, got %v, %v", stats, err)
	}
}

func TestClient_ArtistsListDeclined(t *testing.T) {
	client, _ := newTestClient(t, nil)

	records, err := client.ArtistsList(context.Background(), ListQuery{QueryType: "unknown_rank"})
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("Expected ErrNoContent, got %v", err)
	}
	if records != nil {
		t.Errorf("Expected no records, got %v", records)
	}
}

func TestClient_ArtistTracks(t *testing.T) {
	client, _ := newTestClient(t, nil)

	records, err := client.ArtistTracks(context.Background(), 1)
	if err != nil {
		t.Fatalf("ArtistTracks failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 tracks, got %d", len(records))
	}

	first := records[0].Domain(1)
	if first.TrackID != "10" || first.Name != "Song" {
		t.Errorf("Unexpected track %+v", first)
	}
	if len(first.ReleaseDates) != 2 || first.ReleaseDates[1] != "" {
		t.Errorf("Expected null release date kept as empty, got %v", first.ReleaseDates)
	}
	if second := records[1].Domain(1); second.TrackID != "11" {
		t.Errorf("Expected track_id fallback, got %q", second.TrackID)
	}
}

func TestClient_EmptyIDs(t *testing.T) {
	client, mock := newTestClient(t, nil)
	ctx := context.Background()

	if obj, err := client.ArtistMeta(ctx, 0); obj != nil || err != nil {
		t.Errorf("Expected nil result for empty id")
	}
	if obj, err := client.TrackDetail(ctx, ""); obj != nil || err != nil {
		t.Errorf("Expected nil result for empty id")
	}
	if mock.tokenCalls != 0 {
		t.Errorf("Expected no calls for empty ids")
	}

	if obj, err := client.TrackDetail(ctx, "10"); obj != nil || err != nil {
		t.Errorf("Expected nil result for null obj, got %s, %v", obj, err)
	}
}

func TestPreviousMonth(t *testing.T) {
	tests := []struct {
		now   time.Time
		since string
		until string
	}{
		{time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), "2024-04-01", "2024-04-30"},
		{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "2024-02-01", "2024-02-29"},
		{time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC), "2023-12-01", "2023-12-31"},
	}
	for _, tt := range tests {
		since, until := PreviousMonth(tt.now)
		if since.Format(time.DateOnly) != tt.since || until.Format(time.DateOnly) != tt.until {
			t.Errorf("PreviousMonth(%s) = %s..%s, want %s..%s",
				tt.now.Format(time.DateOnly), since.Format(time.DateOnly), until.Format(time.DateOnly), tt.since, tt.until)
		}
	}
}

func TestHttpize(t *testing.T) {
	values := httpize(map[string]any{"a": true, "b": false, "c": 3, "d": "x"})
	want := "a=1&b=0&c=3&d=x"
	if got := values.Encode(); got != want {
		t.Errorf("httpize = %q, want %q", got, want)
	}
	if httpize(nil) != nil {
		t.Error("Expected nil for nil params")
	}
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
		value float64
	}{
		{`12.5`, true, 12.5},
		{`"42"`, true, 42},
		{`null`, false, 0},
		{`""`, false, 0},
		{`"n/a"`, false, 0},
	}
	for _, tt := range tests {
		var n Number
		if err := json.Unmarshal([]byte(tt.in), &n); err != nil {
			t.Errorf("Unmarshal(%s) error: %v", tt.in, err)
			continue
		}
		if n.Valid != tt.valid || n.Value != tt.value {
			t.Errorf("Unmarshal(%s) = %+v", tt.in, n)
		}
	}
}
