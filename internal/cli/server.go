package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-engine/internal/app"
	"quiz-engine/internal/config"
	"quiz-engine/internal/domain"
	"quiz-engine/internal/infra/amqp"
	"quiz-engine/internal/infra/memory"
	"quiz-engine/internal/infra/postgres"
	redisinfra "quiz-engine/internal/infra/redis"
	"quiz-engine/internal/telemetry"
	transport "quiz-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
	slog.SetDefault(cfg.NewLogger())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg.Postgres.URL); err != nil {
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, cleanup, err := wire(ctx, cfg)
	defer cleanup()
	if err != nil {
		return err
	}

	hub := transport.NewHub()
	notifiers := app.Notifiers{hub}
	if deps.redis != nil {
		notifiers = append(notifiers, redisinfra.NewNotifier(deps.redis, cfg.Redis.ChannelPrefix))
	}

	service := app.NewQuizService(app.Config{
		Sessions:        deps.sessions,
		Quizzes:         deps.quizzes,
		Results:         deps.results,
		Notifier:        notifiers,
		Recorder:        telemetry.NewMetrics(reg),
		LeaderboardSize: cfg.Engine.LeaderboardSize,
	})
	router := transport.NewRouter(
		transport.NewRESTHandler(service),
		transport.NewWSHandler(service, hub, cfg.Engine.SendBuffer),
		reg,
	)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting quiz engine", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type dependencies struct {
	redis    redis.UniversalClient
	sessions app.SessionRegistry
	quizzes  app.QuizRepository
	results  app.ResultSinks
}

// wire connects the configured backends. Every backend is optional; without
// any of them the engine runs fully in memory.
func wire(ctx context.Context, cfg config.Config) (dependencies, func(), error) {
	var (
		deps     dependencies
		closers  []func()
		loader   redisinfra.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
		redisTTL                       = config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		quizTTL                        = config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = client.Close() })
		if err := telemetry.MonitorRedis(client); err != nil {
			return deps, cleanup, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return deps, cleanup, fmt.Errorf("ping redis: %w", err)
		}
		deps.redis = client
	}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return deps, cleanup, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		loader = postgres.NewQuizLoader(pool)
		deps.results = append(deps.results, postgres.NewResultStore(pool))
	}

	if cfg.AMQP.URL != "" {
		publisher, err := amqp.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return deps, cleanup, err
		}
		closers = append(closers, publisher.Close)
		deps.results = append(deps.results, publisher)
	}

	if deps.redis != nil {
		deps.sessions = redisinfra.NewSessionStore(deps.redis, redisTTL)
		deps.quizzes = redisinfra.NewQuizRepository(deps.redis, loader, quizTTL)
		deps.results = append(deps.results, redisinfra.NewResultStore(deps.redis, config.TTLDuration(cfg.Redis.ResultTTL, 0)))
	} else {
		deps.sessions = memory.NewSessionStore()
		deps.quizzes = memory.NewQuizRepository(loader, quizTTL)
	}

	if len(deps.results) == 0 {
		slog.Warn("no durable result sink configured, results are kept in memory")
		deps.results = append(deps.results, memory.NewResultStore())
	}
	return deps, cleanup, nil
}

// sampleQuizzes backs the quizId lookup when no Postgres is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID: "quiz-1",
			Questions: []domain.Question{
				{Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOption: 2},
				{Prompt: "Which planet is closest to the sun?", Options: []string{"Venus", "Mercury", "Mars"}, CorrectOption: 2},
				{Prompt: "How many sides does a hexagon have?", Options: []string{"5", "6", "8"}, CorrectOption: 2},
			},
		},
	}
}
