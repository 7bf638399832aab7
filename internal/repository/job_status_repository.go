package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/sma-timetable-engine/pkg/errors"
)

const jobStatusPrefix = "timetable:job:"

// JobStatusRepository keeps generation job snapshots in Redis with a TTL. Without a
// client it keeps them in process memory, which is enough for a single instance.
type JobStatusRepository struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	local map[string]localValue
}

type localValue struct {
	payload   []byte
	expiresAt time.Time
}

// NewJobStatusRepository constructs the repository; client may be nil.
func NewJobStatusRepository(client *redis.Client, ttl time.Duration) *JobStatusRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JobStatusRepository{
		client: client,
		ttl:    ttl,
		now:    time.Now,
		local:  make(map[string]localValue),
	}
}

// Save marshals value and stores it under the job id.
func (r *JobStatusRepository) Save(ctx context.Context, jobID string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal job status %s: %w", jobID, err)
	}

	if r.client == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.local[jobID] = localValue{payload: payload, expiresAt: r.now().Add(r.ttl)}
		return nil
	}

	if err := r.client.Set(ctx, jobStatusPrefix+jobID, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set job status %s: %w", jobID, err)
	}
	return nil
}

// Load unmarshals the stored snapshot into dest, returning ErrNotFound when absent or expired.
func (r *JobStatusRepository) Load(ctx context.Context, jobID string, dest interface{}) error {
	var raw []byte
	if r.client == nil {
		r.mu.Lock()
		value, ok := r.local[jobID]
		if ok && r.now().After(value.expiresAt) {
			delete(r.local, jobID)
			ok = false
		}
		r.mu.Unlock()
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "generation job not found")
		}
		raw = value.payload
	} else {
		var err error
		raw, err = r.client.Get(ctx, jobStatusPrefix+jobID).Bytes()
		if err != nil {
			if err == redis.Nil {
				return appErrors.Clone(appErrors.ErrNotFound, "generation job not found")
			}
			return fmt.Errorf("redis get job status %s: %w", jobID, err)
		}
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal job status %s: %w", jobID, err)
	}
	return nil
}
