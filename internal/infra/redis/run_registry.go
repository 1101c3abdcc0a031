package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"saa-question-importer/internal/domain"
)

const (
	lockKey       = "import:lock"
	lastReportKey = "import:last"
)

// releaseLock deletes the lock only while runID still owns it.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunRegistry serialises imports across processes with a Redis lock. The lock expires
// after ttl so a crashed importer cannot hold it forever.
type RunRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRunRegistry(client *redis.Client, ttl time.Duration) *RunRegistry {
	return &RunRegistry{client: client, ttl: ttl}
}

func (r *RunRegistry) Begin(ctx context.Context, runID string) error {
	ok, err := r.client.SetNX(ctx, lockKey, runID, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire import lock: %w", err)
	}
	if !ok {
		return domain.ErrImportInProgress
	}
	return nil
}

func (r *RunRegistry) Finish(ctx context.Context, runID string, report domain.ImportReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := r.client.Set(ctx, lastReportKey, data, 0).Err(); err != nil {
		return fmt.Errorf("store report: %w", err)
	}
	if err := releaseLock.Run(ctx, r.client, []string{lockKey}, runID).Err(); err != nil {
		return fmt.Errorf("release import lock: %w", err)
	}
	return nil
}

func (r *RunRegistry) Last(ctx context.Context) (domain.ImportReport, bool, error) {
	raw, err := r.client.Get(ctx, lastReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ImportReport{}, false, nil
	}
	if err != nil {
		return domain.ImportReport{}, false, fmt.Errorf("load last report: %w", err)
	}
	var report domain.ImportReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return domain.ImportReport{}, false, fmt.Errorf("unmarshal report: %w", err)
	}
	return report, true, nil
}
