package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/fanstats/internal/core/domain"
	"github.com/vietddude/fanstats/internal/infra/storage"
)

func setupTestClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis test. Set TEST_REDIS_URL to run.")
	}
	client, err := NewClient(Config{URL: url, Namespace: "fanstats_test_" + uuid.NewString()})
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestFailedRequestRepo(t *testing.T) {
	client := setupTestClient(t)
	repo := NewFailedRequestRepo(client)
	ctx := context.Background()

	older := &domain.FailedRequest{ID: "b", Endpoint: "artist_tracks", Code: 500, CreatedAt: 100}
	newer := &domain.FailedRequest{ID: "a", Endpoint: "artists_list", Code: 503, CreatedAt: 200}
	for _, fr := range []*domain.FailedRequest{newer, older} {
		if err := repo.Add(ctx, fr); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "b" || all[1].ID != "a" {
		t.Fatalf("Expected oldest first, got %+v", all)
	}
	if all[0].Status != domain.FailedRequestStatusPending {
		t.Errorf("Expected pending status, got %q", all[0].Status)
	}

	if err := repo.MarkResolved(ctx, "b"); err != nil {
		t.Fatalf("MarkResolved failed: %v", err)
	}
	if err := repo.MarkResolved(ctx, "b"); !errors.Is(err, storage.ErrFailedRequestNotFound) {
		t.Errorf("Expected ErrFailedRequestNotFound, got %v", err)
	}
	if count, _ := repo.Count(ctx); count != 1 {
		t.Errorf("Expected 1 queued request, got %d", count)
	}
}

func TestFailedRequestRepo_CountSkipsExpired(t *testing.T) {
	client := setupTestClient(t)
	repo := NewFailedRequestRepo(client)
	ctx := context.Background()

	for _, id := range []string{"kept", "expired"} {
		if err := repo.Add(ctx, &domain.FailedRequest{ID: id, Endpoint: "artist_tracks", Code: 500}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	// Drop the record as its TTL would, leaving the queue member behind.
	if err := client.rdb.Del(ctx, repo.recordKey("expired")).Err(); err != nil {
		t.Fatalf("Del failed: %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 queued request, got %d", count)
	}
	if n, _ := client.rdb.ZCard(ctx, repo.queueKey()).Result(); n != 1 {
		t.Errorf("Expected expired member pruned from the queue, got %d members", n)
	}
}

func TestTokenCache(t *testing.T) {
	client := setupTestClient(t)
	cache := NewTokenCache(client, "chartmetric")
	ctx := context.Background()

	token, _, err := cache.Load(ctx)
	if err != nil || token != "" {
		t.Fatalf("Expected empty cache, got %q, %v", token, err)
	}

	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)
	if err := cache.Store(ctx, "access", expiresAt); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	token, got, err := cache.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if token != "access" || !got.Equal(expiresAt) {
		t.Errorf("Unexpected cached token %q expiring %v", token, got)
	}
}
