package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"saa-question-importer/internal/domain"
)

// QuestionLoader fetches dataset content from the backing store on a cache miss.
type QuestionLoader interface {
	LoadIndex(ctx context.Context) (domain.DatasetIndex, error)
	LoadTopic(ctx context.Context, topic string) ([]domain.QuestionRecord, error)
}

// QuestionRepository caches the dataset in Redis and falls back to a loader on miss.
// The index is stored as: SET questions:index {json}
// Each partition as:      SET questions:topic:{topic} {json}
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetIndex(ctx context.Context) (domain.DatasetIndex, error) {
	var index domain.DatasetIndex
	if r.readCache(ctx, indexKey, &index) {
		return index, nil
	}

	result, err, _ := r.sf.Do(indexKey, func() (interface{}, error) {
		var index domain.DatasetIndex
		// another goroutine may have filled it
		if r.readCache(ctx, indexKey, &index) {
			return index, nil
		}
		index, err := r.loader.LoadIndex(ctx)
		if err != nil {
			return domain.DatasetIndex{}, err
		}
		r.writeCache(ctx, indexKey, index)
		return index, nil
	})
	if err != nil {
		return domain.DatasetIndex{}, err
	}
	return result.(domain.DatasetIndex), nil
}

func (r *QuestionRepository) GetTopic(ctx context.Context, topic string) ([]domain.QuestionRecord, error) {
	key := topicKey(topic)
	var records []domain.QuestionRecord
	if r.readCache(ctx, key, &records) {
		return records, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		var records []domain.QuestionRecord
		if r.readCache(ctx, key, &records) {
			return records, nil
		}
		records, err := r.loader.LoadTopic(ctx, topic)
		if err != nil {
			return nil, err
		}
		r.writeCache(ctx, key, records)
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionRecord), nil
}

func (r *QuestionRepository) Name() string { return "redis-cache" }

// Publish warms the cache with a freshly imported dataset and drops partitions the new
// index no longer lists.
func (r *QuestionRepository) Publish(ctx context.Context, index domain.DatasetIndex, parts []domain.Partition) error {
	var previous domain.DatasetIndex
	hadPrevious := r.readCache(ctx, indexKey, &previous)

	indexData, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	ttl := r.ttlWithJitter()
	pipe := r.client.TxPipeline()
	if hadPrevious {
		current := make(map[string]bool, len(parts))
		for _, p := range parts {
			current[p.Topic] = true
		}
		for _, topic := range previous.Topics {
			if !current[topic] {
				pipe.Del(ctx, topicKey(topic))
			}
		}
	}
	for _, p := range parts {
		data, err := json.Marshal(p.Records)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", p.Topic, err)
		}
		pipe.Set(ctx, topicKey(p.Topic), data, ttl)
	}
	pipe.Set(ctx, indexKey, indexData, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("warm cache: %w", err)
	}
	return nil
}

// readCache reports a hit only when the key exists and decodes cleanly. Redis errors
// degrade to a miss so the loader stays authoritative.
func (r *QuestionRepository) readCache(ctx context.Context, key string, dst any) bool {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		slog.Warn("discarding undecodable cache entry", "key", key, "error", err)
		return false
	}
	return true
}

func (r *QuestionRepository) writeCache(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttlWithJitter()).Err(); err != nil {
		slog.Warn("redis cache write failed", "key", key, "error", err)
	}
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

const indexKey = "questions:index"

func topicKey(topic string) string {
	return "questions:topic:" + topic
}
