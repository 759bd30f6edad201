package integration

import (
	"context"
	"database/sql"
	"encoding/json"
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

	"quizforge/internal/app"
	"quizforge/internal/domain"
	"quizforge/internal/infra/memory"
	pgbank "quizforge/internal/infra/postgres"
	pgmigrations "quizforge/internal/infra/postgres/migrations"
	rediscache "quizforge/internal/infra/redis"
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestionBank(t, ctx, pgURL, bankQuestions())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	bank := &countingGenerator{next: pgbank.NewBankGenerator(pool)}
	generator := rediscache.NewCachedGenerator(redisClient, bank, 5*time.Minute)

	store := memory.NewSessionStore()
	advisor := memory.NewStaticAdvisor()
	service := app.NewQuizService(store, generator, advisor, advisor, app.NewLeaderboard(5))

	id, total, err := service.Start(ctx, "Alice", "easy", "math", false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if total != domain.QuestionsPerQuiz {
		t.Fatalf("expected %d questions, got %d", domain.QuestionsPerQuiz, total)
	}

	score := 0
	for i := 0; i < total; i++ {
		res, err := service.NextQuestion(ctx, id)
		if err != nil || res.Done {
			t.Fatalf("next question %d: done=%v err=%v", i, res.Done, err)
		}
		correct, running, err := service.SubmitAnswer(ctx, id, i, 0)
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if correct {
			score++
		}
		if running != score {
			t.Fatalf("expected running score %d, got %d", score, running)
		}
	}

	result, err := service.End(ctx, id)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if result.Score != score {
		t.Fatalf("expected final score %d, got %d", score, result.Score)
	}
	entries := service.LeaderboardSnapshot()
	if len(entries) != 1 || entries[0].Name != "Alice" {
		t.Fatalf("expected Alice on the leaderboard, got %+v", entries)
	}

	// A second quiz for the same topic should come from the Redis cache.
	if _, _, err := service.Start(ctx, "Bob", "easy", "math", false); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if bank.calls != 1 {
		t.Fatalf("expected question bank hit once, got %d", bank.calls)
	}
}

type countingGenerator struct {
	next  app.QuestionGenerator
	calls int
}

func (g *countingGenerator) Generate(ctx context.Context, params app.GenerateParams) ([]domain.Question, error) {
	g.calls++
	return g.next.Generate(ctx, params)
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
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
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
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

func seedQuestionBank(t *testing.T, ctx context.Context, dsn string, questions []domain.Question) {
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

	for _, q := range questions {
		data, err := json.Marshal(q)
		if err != nil {
			t.Fatalf("marshal question: %v", err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO question_bank (topic, difficulty, data) VALUES (?, ?, ?::jsonb)`,
			"math", "easy", string(data)); err != nil {
			t.Fatalf("insert question: %v", err)
		}
	}
}

func bankQuestions() []domain.Question {
	questions := make([]domain.Question, domain.QuestionsPerQuiz)
	for i := range questions {
		questions[i] = domain.Question{
			Text: fmt.Sprintf("What is %d + %d?", i+1, i+1),
			Options: []string{
				fmt.Sprintf("%d", (i+1)*2),
				fmt.Sprintf("%d", (i+1)*2+1),
				fmt.Sprintf("%d", (i+1)*2+2),
				fmt.Sprintf("%d", (i+1)*2+3),
			},
			CorrectIndex: 0,
		}
	}
	return questions
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
