package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"saa-question-importer/internal/app"
	"saa-question-importer/internal/classify"
	"saa-question-importer/internal/config"
	"saa-question-importer/internal/infra/filestore"
	"saa-question-importer/internal/infra/memory"
	"saa-question-importer/internal/infra/postgres"
	rediscache "saa-question-importer/internal/infra/redis"
	"saa-question-importer/internal/infra/source"
	"saa-question-importer/internal/infra/sqlite"
	"saa-question-importer/internal/infra/xlsx"
	"saa-question-importer/internal/schema"
)

// backends holds the optional shared connections named in the config.
type backends struct {
	redis   *redis.Client
	pool    *pgxpool.Pool
	runs    app.RunRegistry
	closers []func()
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = b.redis.Close() })
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.pool = pool
		b.closers = append(b.closers, pool.Close)
	}
	return b, nil
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// runRegistry prefers Redis, then Postgres, then a process-local lock. The same
// registry is returned on every call.
func (b *backends) runRegistry(cfg config.Config) app.RunRegistry {
	if b.runs != nil {
		return b.runs
	}
	lockTTL := config.TTLDuration(cfg.Import.LockTTL, 10*time.Minute)
	switch {
	case b.redis != nil:
		b.runs = rediscache.NewRunRegistry(b.redis, lockTTL)
	case b.pool != nil:
		b.runs = postgres.NewRunRegistry(b.pool, lockTTL)
	default:
		b.runs = memory.NewRunRegistry()
	}
	return b.runs
}

// loader reads the published dataset back: Postgres when configured, files otherwise.
func (b *backends) loader(cfg config.Config) memory.QuestionLoader {
	if b.pool != nil {
		return postgres.NewQuestionStore(b.pool)
	}
	return filestore.NewLoader(cfg.Output.Dir)
}

// questionCache returns the read-side repository. It also publishes so a fresh import
// replaces what it serves.
func (b *backends) questionCache(cfg config.Config) interface {
	app.QuestionRepository
	app.Publisher
} {
	ttl := config.TTLDuration(cfg.Cache.TTL, 10*time.Minute)
	if b.redis != nil {
		return rediscache.NewQuestionRepository(b.redis, b.loader(cfg), ttl)
	}
	return memory.NewQuestionRepository(b.loader(cfg), ttl)
}

func newSource(cfg config.Config) app.Source {
	opts := []source.HTTPOption{source.WithTimeout(config.TTLDuration(cfg.Source.Timeout, 30*time.Second))}
	if cfg.Source.Location != "" {
		return source.New(cfg.Source.Location, opts...)
	}
	if cfg.Source.BaseURL != "" {
		opts = append(opts, source.WithBaseURL(cfg.Source.BaseURL))
	}
	return source.NewHTTPSource(cfg.Source.File, opts...)
}

func datasetInfo(cfg config.Config) app.DatasetInfo {
	info := app.DefaultDatasetInfo()
	if cfg.Dataset.IDPrefix != "" {
		info.IDPrefix = cfg.Dataset.IDPrefix
	}
	if cfg.Dataset.Subject != "" {
		info.Subject = cfg.Dataset.Subject
	}
	if cfg.Dataset.ExamType != "" {
		info.ExamType = cfg.Dataset.ExamType
	}
	if cfg.Dataset.SourceRepo != "" {
		info.SourceRepo = cfg.Dataset.SourceRepo
	}
	return info
}

func newClassifier(cfg config.Config) (*classify.Classifier, error) {
	if cfg.Taxonomy.Path == "" {
		return classify.New(classify.DefaultTaxonomy()), nil
	}
	tax, err := classify.LoadTaxonomy(cfg.Taxonomy.Path)
	if err != nil {
		return nil, err
	}
	return classify.New(tax), nil
}

// newImporter assembles an importer from cfg. Publishers that hold resources register
// their cleanup on b.
func newImporter(ctx context.Context, cfg config.Config, b *backends, extra ...app.Publisher) (*app.Importer, error) {
	classifier, err := newClassifier(cfg)
	if err != nil {
		return nil, err
	}
	validator, err := schema.New()
	if err != nil {
		return nil, err
	}

	var publishers []app.Publisher
	if cfg.Output.XLSX != "" {
		publishers = append(publishers, xlsx.NewExporter(cfg.Output.XLSX))
	}
	if cfg.Output.SQLite != "" {
		store, err := sqlite.Open(ctx, cfg.Output.SQLite)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		publishers = append(publishers, store)
	}
	if b.pool != nil {
		publishers = append(publishers, postgres.NewQuestionStore(b.pool))
	}
	publishers = append(publishers, extra...)

	names := make([]string, 0, len(publishers))
	for _, p := range publishers {
		names = append(names, p.Name())
	}
	slog.Debug("importer configured", "out", cfg.Output.Dir, "workers", cfg.Import.Workers, "publishers", names)

	return app.NewImporter(
		newSource(cfg),
		app.NewAssembler(classifier, datasetInfo(cfg)),
		filestore.NewWriter(cfg.Output.Dir, filestore.WithValidator(validator)),
		app.WithWorkers(cfg.Import.Workers),
		app.WithPublishers(publishers...),
		app.WithRunRegistry(b.runRegistry(cfg)),
	), nil
}
