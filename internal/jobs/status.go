// Package jobs tracks asynchronous generation jobs in Redis: the latest status
// is stored under a TTL key and every change is published for websocket
// subscribers.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Job states.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// DefaultTTL bounds how long a finished job can be looked up.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned when a job ID is unknown or expired.
var ErrNotFound = errors.New("job not found")

// Message 是推送给前端的任务状态消息，字段名与前端解析保持一致。
type Message struct {
	JobID         string    `json:"job_id"`
	Status        string    `json:"status"`
	CorrelationID string    `json:"correlation_id"`
	ErrorCode     int       `json:"error_code"`
	ErrorMessage  string    `json:"error_message"`
	Certificates  int       `json:"certificates,omitempty"`
	FontFallback  bool      `json:"font_fallback,omitempty"`
	ObjectKey     string    `json:"object_key,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Terminal reports whether the job will not change state again.
func (m Message) Terminal() bool {
	return m.Status == StatusCompleted || m.Status == StatusError
}

type redisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Store reads and writes job status.
type Store struct {
	client redisClient
	ttl    time.Duration
}

// NewStore wraps a Redis client. ttl <= 0 uses DefaultTTL.
func NewStore(client redisClient, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// StatusKey is the Redis key holding a job's latest status.
func StatusKey(jobID string) string { return "job_status:" + jobID }

// Channel is the pub/sub channel carrying a job's status changes.
func Channel(jobID string) string { return "job_notify:" + jobID }

// Set stores msg and publishes it.
func (s *Store) Set(ctx context.Context, msg Message) error {
	if msg.UpdatedAt.IsZero() {
		msg.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal job status: %w", err)
	}
	if err := s.client.Set(ctx, StatusKey(msg.JobID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store job status %q: %w", msg.JobID, err)
	}
	if err := s.client.Publish(ctx, Channel(msg.JobID), data).Err(); err != nil {
		return fmt.Errorf("publish job status to %q: %w", Channel(msg.JobID), err)
	}
	return nil
}

// Get returns the latest status of jobID.
func (s *Store) Get(ctx context.Context, jobID string) (*Message, error) {
	data, err := s.client.Get(ctx, StatusKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load job status %q: %w", jobID, err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode job status %q: %w", jobID, err)
	}
	return &msg, nil
}
