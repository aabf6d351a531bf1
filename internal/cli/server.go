package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clip-trivia-service/internal/app"
	"clip-trivia-service/internal/config"
	"clip-trivia-service/internal/domain"
	"clip-trivia-service/internal/infra/file"
	"clip-trivia-service/internal/infra/memory"
	natspub "clip-trivia-service/internal/infra/nats"
	pgloader "clip-trivia-service/internal/infra/postgres"
	redisstore "clip-trivia-service/internal/infra/redis"
	transport "clip-trivia-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level, cfg.Log.Pretty)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	loader, err := catalogLoader(cfg, pool)
	if err != nil {
		return err
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 0)
	var catalog app.CatalogRepository
	if redisClient != nil {
		catalog = redisstore.NewCatalogRepository(redisClient, loader, redisTTL)
	} else {
		catalog = memory.NewCatalogRepository(loader, catalogTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	var events app.EventPublisher = app.NopPublisher{}
	if cfg.NATS.URL != "" {
		publisher, err := natspub.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return err
		}
		defer publisher.Close()
		events = publisher
	}

	registry := app.NewRegistry(store, cfg.Delays(), app.WithCodeAttempts(cfg.Game.CodeAttempts))
	service := app.NewGameService(registry, catalog, events)

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(service, transport.RouterOptions{
			StaticDir:      cfg.Server.StaticDir,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting trivia service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// catalogLoader prefers Postgres, then the CSV file, then the built-in demo level.
func catalogLoader(cfg config.Config, pool *pgxpool.Pool) (memory.LevelLoader, error) {
	if pool != nil {
		return pgloader.NewCatalogLoader(pool, cfg.MediaLayout()), nil
	}
	if cfg.Catalog.CSVPath != "" {
		return file.NewCSVLoader(cfg.Catalog.CSVPath, cfg.MediaLayout())
	}
	log.Warn().Msg("no catalog configured, serving the demo level")
	return memory.NewStaticCatalogLoader(sampleLevels(cfg.MediaLayout())), nil
}

// sampleLevels provides a minimal level so the service runs without a catalog.
func sampleLevels(layout file.MediaLayout) map[int]domain.Level {
	levels, _ := file.BuildLevels([]file.Row{
		{Level: 1, Number: 1, Clip: "sample1", CorrectAnswer: 1},
		{Level: 1, Number: 2, Clip: "sample2", CorrectAnswer: 2},
		{Level: 1, Number: 3, Clip: "sample3", CorrectAnswer: 3},
	}, layout)
	return levels
}
