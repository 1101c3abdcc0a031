package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"saa-question-importer/internal/app"
	"saa-question-importer/internal/classify"
	"saa-question-importer/internal/domain"
	"saa-question-importer/internal/infra/filestore"
	"saa-question-importer/internal/infra/postgres"
	pgmigrations "saa-question-importer/internal/infra/postgres/migrations"
	infraredis "saa-question-importer/internal/infra/redis"
)

const dump = `1] A company stores images in S3 buckets and needs lifecycle rules.
A. Use S3 lifecycle policies
B. Use EBS snapshots
ans- A lifecycle policies move objects between storage classes.

2] Run containers on EC2 without managing a scheduler.
A. ECS
B. SNS
Answer: A

3] Place an RDS Multi-AZ database in a private VPC subnet.
A. yes
B. no
correct answer B
`

type stringSource string

func (s stringSource) Fetch(context.Context) (string, error) { return string(s), nil }

func TestImportToPostgresServedThroughRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	store := postgres.NewQuestionStore(pool)
	cache := infraredis.NewQuestionRepository(redisClient, store, 5*time.Minute)
	runs := postgres.NewRunRegistry(pool, time.Minute)

	importer := app.NewImporter(
		stringSource(dump),
		app.NewAssembler(classify.New(classify.DefaultTaxonomy()), app.DefaultDatasetInfo()),
		filestore.NewWriter(t.TempDir()),
		app.WithPublishers(store, cache),
		app.WithRunRegistry(runs),
	)
	report, err := importer.Run(ctx, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Produced != 3 {
		t.Fatalf("expected 3 questions, got %+v", report)
	}

	index, err := store.LoadIndex(ctx)
	if err != nil {
		t.Fatalf("load index: %v", err)
	}
	if index.TotalQuestions != 3 || len(index.Topics) == 0 {
		t.Fatalf("unexpected index %+v", index)
	}

	bank := app.NewBankService(cache)
	q, err := bank.Question(ctx, "aws-saa-c03-002")
	if err != nil {
		t.Fatalf("question: %v", err)
	}
	if q.Metadata.QuestionNumber != 2 || len(q.Options) != 2 {
		t.Fatalf("unexpected record %+v", q)
	}

	tagged, err := store.QuestionsByTag(ctx, "rds")
	if err != nil {
		t.Fatalf("by tag: %v", err)
	}
	if len(tagged) != 1 || tagged[0].ID != "aws-saa-c03-003" {
		t.Fatalf("unexpected tagged records %+v", tagged)
	}

	last, ok, err := runs.Last(ctx)
	if err != nil || !ok || last.RunID != report.RunID {
		t.Fatalf("last run = %+v, %v, %v", last, ok, err)
	}
}

func TestRunRegistriesExcludeConcurrentImports(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)
	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	registries := map[string]app.RunRegistry{
		"postgres": postgres.NewRunRegistry(pool, time.Minute),
		"redis":    infraredis.NewRunRegistry(redisClient, time.Minute),
	}
	for name, runs := range registries {
		t.Run(name, func(t *testing.T) {
			if err := runs.Begin(ctx, name+"-1"); err != nil {
				t.Fatalf("begin: %v", err)
			}
			if err := runs.Begin(ctx, name+"-2"); !errors.Is(err, domain.ErrImportInProgress) {
				t.Fatalf("expected ErrImportInProgress, got %v", err)
			}
			if err := runs.Finish(ctx, name+"-1", domain.ImportReport{RunID: name + "-1", FinishedAt: time.Now()}); err != nil {
				t.Fatalf("finish: %v", err)
			}
			if err := runs.Begin(ctx, name+"-3"); err != nil {
				t.Fatalf("begin after finish: %v", err)
			}
		})
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "bank", "POSTGRES_PASSWORD": "bankpass", "POSTGRES_DB": "questions"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://bank:bankpass@%s:%s/questions?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

// migrateSchema retries while Postgres finishes its init restart after the port opens.
func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	var err error
	for attempt := 0; attempt < 20; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("postgres not ready: %v", err)
	}

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
