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
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizforge/internal/app"
	"quizforge/internal/config"
	"quizforge/internal/genai"
	"quizforge/internal/infra/memory"
	pgbank "quizforge/internal/infra/postgres"
	rediscache "quizforge/internal/infra/redis"
	transport "quizforge/internal/transport/http"
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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Question source, in order of preference: generative backend, Postgres
	// question bank, canned sample questions for local runs.
	var generator app.QuestionGenerator
	var hints app.HintGenerator
	var explainer app.ExplanationGenerator

	advisor := memory.NewStaticAdvisor()
	hints, explainer = advisor, advisor

	switch {
	case cfg.Generator.Endpoint != "":
		client := genai.NewClient(cfg.Generator.Endpoint, cfg.Generator.APIKey,
			config.TTLDuration(cfg.Generator.Timeout, 60*time.Second))
		generator, hints, explainer = client, client, client
	case pool != nil:
		generator = pgbank.NewBankGenerator(pool)
	default:
		log.Println("no generator backend configured, serving sample questions")
		generator = memory.NewStaticGenerator()
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	if redisClient != nil {
		generator = rediscache.NewCachedGenerator(redisClient, generator, cacheTTL)
	} else {
		generator = memory.NewCachedGenerator(generator, cacheTTL)
	}

	sessionTTL := config.TTLDuration(cfg.Quiz.SessionTTL, 0)
	sweepEvery := config.TTLDuration(cfg.Quiz.SweepEvery, time.Minute)
	store := memory.NewExpiringSessionStore(sessionTTL, sweepEvery)
	defer store.Close()

	board := app.NewLeaderboard(cfg.Leaderboard.Size)
	service := app.NewQuizService(store, generator, hints, explainer, board)

	handler := transport.NewHandler(service)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizforge on :%s", finalPort)
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
