package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/fanstats/internal/core/domain"
	"github.com/vietddude/fanstats/internal/infra/storage"
)

// recordTTL bounds how long a failed request stays inspectable.
const recordTTL = 24 * time.Hour

// FailedRequestRepo implements storage.FailedRequestRepository using Redis.
// Records are JSON values indexed by a sorted set scored by creation time.
type FailedRequestRepo struct {
	rdb    *redis.Client
	client *Client
}

// NewFailedRequestRepo creates a new Redis-backed failed request repository.
func NewFailedRequestRepo(client *Client) *FailedRequestRepo {
	return &FailedRequestRepo{rdb: client.rdb, client: client}
}

func (r *FailedRequestRepo) queueKey() string {
	return r.client.key("failed_requests")
}

func (r *FailedRequestRepo) recordKey(id string) string {
	return r.client.key("failed_request", id)
}

// Add adds a failed request to the queue.
func (r *FailedRequestRepo) Add(ctx context.Context, fr *domain.FailedRequest) error {
	record := *fr
	if record.Status == "" {
		record.Status = domain.FailedRequestStatusPending
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal failed request: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.recordKey(record.ID), data, recordTTL)
	pipe.ZAdd(ctx, r.queueKey(), redis.Z{
		Score:  float64(record.CreatedAt),
		Member: record.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add failed request: %w", err)
	}
	return nil
}

// MarkResolved removes a failed request from the queue.
func (r *FailedRequestRepo) MarkResolved(ctx context.Context, id string) error {
	removed, err := r.rdb.ZRem(ctx, r.queueKey(), id).Result()
	if err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}
	if err := r.rdb.Del(ctx, r.recordKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete failed request: %w", err)
	}
	if removed == 0 {
		return storage.ErrFailedRequestNotFound
	}
	return nil
}

// GetAll retrieves all failed requests, oldest first. Expired records are
// dropped from the queue.
func (r *FailedRequestRepo) GetAll(ctx context.Context) ([]*domain.FailedRequest, error) {
	ids, err := r.rdb.ZRange(ctx, r.queueKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	out := make([]*domain.FailedRequest, 0, len(ids))
	for _, id := range ids {
		data, err := r.rdb.Get(ctx, r.recordKey(id)).Bytes()
		if err == redis.Nil {
			r.rdb.ZRem(ctx, r.queueKey(), id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get failed request: %w", err)
		}

		var fr domain.FailedRequest
		if err := json.Unmarshal(data, &fr); err != nil {
			continue
		}
		out = append(out, &fr)
	}
	return out, nil
}

// Count returns the number of queued failed requests whose record has not
// expired. Expired records are dropped from the queue first.
func (r *FailedRequestRepo) Count(ctx context.Context) (int, error) {
	if err := r.pruneExpired(ctx); err != nil {
		return 0, err
	}
	count, err := r.rdb.ZCard(ctx, r.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}

// pruneExpired removes queue members whose record key no longer exists.
func (r *FailedRequestRepo) pruneExpired(ctx context.Context) error {
	ids, err := r.rdb.ZRange(ctx, r.queueKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("zrange failed: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	pipe := r.rdb.Pipeline()
	exists := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		exists[i] = pipe.Exists(ctx, r.recordKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to check failed requests: %w", err)
	}

	var expired []any
	for i, cmd := range exists {
		if cmd.Val() == 0 {
			expired = append(expired, ids[i])
		}
	}
	if len(expired) == 0 {
		return nil
	}
	if err := r.rdb.ZRem(ctx, r.queueKey(), expired...).Err(); err != nil {
		return fmt.Errorf("failed to prune failed requests: %w", err)
	}
	return nil
}
