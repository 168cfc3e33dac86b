package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notes-quiz-service/internal/app"
	"notes-quiz-service/internal/config"
	"notes-quiz-service/internal/generator"
	"notes-quiz-service/internal/infra/memory"
	"notes-quiz-service/internal/infra/postgres"
	redisstore "notes-quiz-service/internal/infra/redis"
	"notes-quiz-service/internal/infra/sqlite"
	"notes-quiz-service/internal/logger"
	transport "notes-quiz-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the notes-to-quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds the stores picked from config and whatever must be closed on exit.
type backends struct {
	durable  app.DocumentStore
	tab      app.DocumentStore
	sessions app.SessionRepository
	closers  []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackends picks the durable store (Postgres, then SQLite, then Redis, then memory),
// the expiring tab store and the session store.
func openBackends(ctx context.Context, cfg config.Config, log *logger.Logger) (*backends, error) {
	b := &backends{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			b.close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		b.durable = postgres.NewDocumentStore(pool)
		log.Info("durable documents in postgres")
	case cfg.SQLite.Path != "":
		store, err := sqlite.NewDocumentStore(cfg.SQLite.Path)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		b.durable = store
		log.Info("durable documents in sqlite", "path", cfg.SQLite.Path)
	case redisClient != nil:
		b.durable = redisstore.NewDocumentStore(redisClient, 0)
		log.Info("durable documents in redis", "addr", cfg.Redis.Addr)
	default:
		b.durable = memory.NewDocumentStore(0)
		log.Warn("no durable backend configured, documents are kept in memory")
	}

	if redisClient != nil {
		b.tab = redisstore.NewDocumentStore(redisClient, quizTTL)
		b.sessions = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		b.tab = memory.NewDocumentStore(quizTTL)
		b.sessions = memory.NewSessionStore()
	}
	return b, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	if cfg.Generator.URL == "" {
		log.Warn("generator url not configured, generation requests will fail")
	}
	gen := generator.NewClient(cfg.Generator.URL, config.TTLDuration(cfg.Generator.Timeout, 60*time.Second))

	workspaces := app.NewWorkspaces(b.durable, cfg.Leaderboard.Capacity, log)
	cache := app.NewQuizCache(b.durable, b.tab, log)
	attempts := app.NewAttemptService(b.sessions, cache, workspaces, log)
	generation := app.NewGenerationService(gen, workspaces, cache, log)
	auth := transport.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.RequireVerified, log)
	api := transport.NewAPI(workspaces, attempts, generation, auth, config.TTLDuration(cfg.Server.WaitTimeout, 60*time.Second), log)

	// Long-poll waits and websockets outlive a fixed write timeout, so only reads are bounded.
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting notes quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
