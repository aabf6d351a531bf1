package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"clip-trivia-service/internal/app"
	"clip-trivia-service/internal/domain"
	"clip-trivia-service/internal/infra/file"
	pgloader "clip-trivia-service/internal/infra/postgres"
	pgmigrations "clip-trivia-service/internal/infra/postgres/migrations"
	infraredis "clip-trivia-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestGameEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedCatalog(t, ctx, pgURL, sampleRows())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewCatalogLoader(pool, file.DefaultMediaLayout())

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	catalog := infraredis.NewCatalogRepository(redisClient, loader, 5*time.Minute)
	store := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	registry := app.NewRegistry(store, domain.DefaultDelays())
	service := app.NewGameService(registry, catalog, nil)

	created, err := service.CreateGame(ctx, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Code < 1000 || created.Code > 9999 {
		t.Fatalf("code out of range: %d", created.Code)
	}
	if _, err := service.Join(ctx, created.Code); err != nil {
		t.Fatalf("join: %v", err)
	}

	poll, err := service.Start(ctx, created.Code, 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if poll.Question == nil || poll.Question.VideoRef != "/movies/jaws.mp4" {
		t.Fatalf("unexpected first question %+v", poll)
	}

	for q := 1; q <= 2; q++ {
		if _, err := service.RequestQuestion(ctx, created.Code, 2); err != nil {
			t.Fatalf("poll p2 q%d: %v", q, err)
		}
		if _, err := service.SubmitAnswer(ctx, created.Code, 1, q, 1); err != nil {
			t.Fatalf("submit p1 q%d: %v", q, err)
		}
		status, err := service.SubmitAnswer(ctx, created.Code, 2, q, 4)
		if err != nil {
			t.Fatalf("submit p2 q%d: %v", q, err)
		}
		if !status.Due || status.Reveal == nil || !status.Reveal.SelfWasCorrect {
			t.Fatalf("expected player 2 correct on q%d, got %+v", q, status)
		}
		poll, err = service.RequestQuestion(ctx, created.Code, 1)
		if err != nil {
			t.Fatalf("poll p1 after q%d: %v", q, err)
		}
	}

	if poll.Summary == nil {
		t.Fatalf("expected summary after last question, got %+v", poll)
	}
	if poll.Summary.WinnerSummary != "Top score, with 2 correct answers: PLAYER 2" {
		t.Fatalf("unexpected winner %q", poll.Summary.WinnerSummary)
	}

	held, err := redisClient.Exists(ctx, fmt.Sprintf("trivia:session:%d", created.Code)).Result()
	if err != nil {
		t.Fatalf("redis exists: %v", err)
	}
	if held != 1 {
		t.Fatalf("expected code reservation in redis")
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
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
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
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

func seedCatalog(t *testing.T, ctx context.Context, dsn string, rows []file.Row) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := pgloader.ImportCatalog(ctx, db, rows); err != nil {
		t.Fatalf("import catalog: %v", err)
	}
}

func sampleRows() []file.Row {
	return []file.Row{
		{Level: 1, Number: 1, Clip: "jaws", CorrectAnswer: 4},
		{Level: 1, Number: 2, Clip: "alien", CorrectAnswer: 4},
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
