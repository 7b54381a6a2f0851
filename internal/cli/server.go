package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizrush-service/internal/app"
	"quizrush-service/internal/attack"
	"quizrush-service/internal/board"
	"quizrush-service/internal/config"
	"quizrush-service/internal/content"
	"quizrush-service/internal/guard"
	"quizrush-service/internal/infra/memory"
	pgstore "quizrush-service/internal/infra/postgres"
	redisstore "quizrush-service/internal/infra/redis"
	"quizrush-service/internal/metrics"
	"quizrush-service/internal/store"
	transport "quizrush-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

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
	}

	var kv store.KV = memory.NewKV()
	if redisClient != nil {
		kv = redisstore.NewKV(redisClient)
	}

	var storage content.Storage = content.NewMemoryStorage()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		storage = pgstore.NewQuizStore(pool)
	}

	var generator content.Generator = content.StaticGenerator{}
	if cfg.Anthropic.APIKey != "" {
		generator = content.NewAIGenerator(content.NewAnthropicLLM(cfg.Anthropic.APIKey, cfg.Anthropic.Model))
	}

	quizTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var cache content.Cache = memory.NewQuizCache(quizTTL)
	if redisClient != nil {
		cache = redisstore.NewQuizCache(redisClient, quizTTL)
	}

	registry := prometheus.NewRegistry()
	set := metrics.New(registry)

	attemptCD := config.TTLDuration(cfg.Guard.AttemptCooldown, 24*time.Hour)
	quitCD := config.TTLDuration(cfg.Guard.QuitCooldown, 20*time.Minute)

	service := app.NewSessionService(
		content.New(storage, generator, cache),
		kv,
		guard.New(kv, guard.WithCooldowns(attemptCD, quitCD)),
		board.New(kv, board.WithMetrics(set)),
		attack.New(kv, attack.WithMetrics(set)),
		cfg.Scoring,
		app.WithMetrics(set),
	)

	mux := transport.NewMux(transport.NewWSHandler(service), transport.NewRESTHandler(service), registry)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: websocket sessions outlive any sane value.
	}

	go func() {
		log.Printf("starting quizrush service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
