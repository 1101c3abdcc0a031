package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"saa-question-importer/internal/domain"
)

// QuestionLoader fetches dataset content from a backing store (files, Postgres).
type QuestionLoader interface {
	LoadIndex(ctx context.Context) (domain.DatasetIndex, error)
	LoadTopic(ctx context.Context, topic string) ([]domain.QuestionRecord, error)
}

// QuestionRepository caches the index and topic partitions with a TTL to avoid repeated
// loads. Concurrent misses for the same key share one load.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu     sync.RWMutex
	index  *cachedIndex
	topics map[string]cachedTopic
}

type cachedIndex struct {
	index     domain.DatasetIndex
	expiresAt time.Time
}

type cachedTopic struct {
	records   []domain.QuestionRecord
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		topics: make(map[string]cachedTopic),
	}
}

// NewQuestionRepositoryWithClock is test-only for deterministic expiry.
func NewQuestionRepositoryWithClock(loader QuestionLoader, ttl time.Duration, clock func() time.Time) *QuestionRepository {
	r := NewQuestionRepository(loader, ttl)
	r.clock = clock
	return r
}

func (r *QuestionRepository) GetIndex(ctx context.Context) (domain.DatasetIndex, error) {
	if index, ok := r.cachedIndex(r.clock()); ok {
		return index, nil
	}

	result, err, _ := r.sf.Do("index", func() (interface{}, error) {
		now := r.clock()
		if index, ok := r.cachedIndex(now); ok {
			return index, nil
		}

		index, err := r.loader.LoadIndex(ctx)
		if err != nil {
			return domain.DatasetIndex{}, err
		}

		r.mu.Lock()
		r.index = &cachedIndex{index: index, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return index, nil
	})
	if err != nil {
		return domain.DatasetIndex{}, err
	}
	return result.(domain.DatasetIndex), nil
}

func (r *QuestionRepository) GetTopic(ctx context.Context, topic string) ([]domain.QuestionRecord, error) {
	if records, ok := r.cachedTopic(topic, r.clock()); ok {
		return records, nil
	}

	result, err, _ := r.sf.Do("topic:"+topic, func() (interface{}, error) {
		now := r.clock()
		if records, ok := r.cachedTopic(topic, now); ok {
			return records, nil
		}

		records, err := r.loader.LoadTopic(ctx, topic)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.topics[topic] = cachedTopic{records: records, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionRecord), nil
}

// Invalidate drops every cached entry, e.g. after a new import was written.
func (r *QuestionRepository) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = nil
	r.topics = make(map[string]cachedTopic)
}

// Name and Publish let the repository sit in an import's publisher chain so the next
// read sees the new dataset.
func (r *QuestionRepository) Name() string { return "memory-cache" }

func (r *QuestionRepository) Publish(_ context.Context, _ domain.DatasetIndex, _ []domain.Partition) error {
	r.Invalidate()
	return nil
}

func (r *QuestionRepository) cachedIndex(now time.Time) (domain.DatasetIndex, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.index != nil && r.index.expiresAt.After(now) {
		return r.index.index, true
	}
	return domain.DatasetIndex{}, false
}

func (r *QuestionRepository) cachedTopic(topic string, now time.Time) ([]domain.QuestionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.topics[topic]; ok && entry.expiresAt.After(now) {
		return entry.records, true
	}
	return nil, false
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticLoader is a loader backed by partitions held in memory (useful for tests/demos).
type StaticLoader struct {
	index  domain.DatasetIndex
	topics map[string][]domain.QuestionRecord
}

func NewStaticLoader(index domain.DatasetIndex, parts []domain.Partition) *StaticLoader {
	topics := make(map[string][]domain.QuestionRecord, len(parts))
	for _, p := range parts {
		topics[p.Topic] = p.Records
	}
	return &StaticLoader{index: index, topics: topics}
}

func (l *StaticLoader) LoadIndex(_ context.Context) (domain.DatasetIndex, error) {
	return l.index, nil
}

func (l *StaticLoader) LoadTopic(_ context.Context, topic string) ([]domain.QuestionRecord, error) {
	if records, ok := l.topics[topic]; ok {
		return records, nil
	}
	return nil, domain.ErrTopicNotFound
}
