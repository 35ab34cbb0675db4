package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
)

const resultKeyPrefix = "taskoverflow:result:"

// ErrNotTerminal is returned when a non-terminal status is saved as a result.
var ErrNotTerminal = errors.New("result status must be terminal")

// Result is the terminal record of a job.
type Result struct {
	Status     domain.JobStatus `json:"status"`
	Output     string           `json:"output,omitempty"`
	Error      string           `json:"error,omitempty"`
	FinishedAt time.Time        `json:"finished_at"`
}

// ResultBackend stores terminal job records in Redis with a retention TTL.
// The first terminal record written for a job wins; later writes are ignored.
type ResultBackend struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewResultBackend wraps an existing client. A zero ttl keeps results forever.
func NewResultBackend(rdb redis.UniversalClient, ttl time.Duration) *ResultBackend {
	return &ResultBackend{rdb: rdb, ttl: ttl}
}

// DialResultBackend connects to the redis:// URL.
func DialResultBackend(ctx context.Context, url string, ttl time.Duration) (*ResultBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid result backend url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to reach result backend: %w", err)
	}
	return NewResultBackend(rdb, ttl), nil
}

// Save records the terminal state of job id. It reports whether the record was
// written, which is false when the job already had one.
func (b *ResultBackend) Save(ctx context.Context, id string, res Result) (bool, error) {
	if !res.Status.IsTerminal() {
		return false, fmt.Errorf("%w: %s", ErrNotTerminal, res.Status)
	}
	if res.Status == domain.JobStatusSuccess {
		res.Error = ""
	} else {
		res.Output = ""
	}
	data, err := json.Marshal(res)
	if err != nil {
		return false, fmt.Errorf("failed to encode result: %w", err)
	}
	written, err := b.rdb.SetNX(ctx, resultKeyPrefix+id, data, b.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to save result: %w", err)
	}
	return written, nil
}

// Load returns the terminal record of job id. ok is false when there is none,
// either because the job has not finished or because the record expired.
func (b *ResultBackend) Load(ctx context.Context, id string) (res *Result, ok bool, err error) {
	data, err := b.rdb.Get(ctx, resultKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load result: %w", err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false, fmt.Errorf("failed to decode result: %w", err)
	}
	return &r, true, nil
}

// Close releases the underlying connection.
func (b *ResultBackend) Close() error {
	return b.rdb.Close()
}
