package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quizforge/internal/app"
	"quizforge/internal/domain"
	"quizforge/internal/infra/memory"
)

func TestCachedGeneratorCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	gen := &countingGenerator{next: memory.NewStaticGenerator()}
	cache := NewCachedGenerator(client, gen, time.Minute)

	params := app.GenerateParams{Difficulty: "Easy", Topic: "Math", Count: domain.QuestionsPerQuiz}

	first, err := cache.Generate(context.Background(), params)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected generator called once, got %d", gen.calls)
	}
	if !mr.Exists("gen:quiz:Easy:Math:5") {
		t.Fatalf("expected cached key in redis")
	}

	// Second call should come from cache, generator not incremented.
	second, err := cache.Generate(context.Background(), params)
	if err != nil {
		t.Fatalf("generate 2: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected cache hit, generator calls=%d", gen.calls)
	}
	if len(second) != len(first) || second[0].Text != first[0].Text || second[0].CorrectIndex != first[0].CorrectIndex {
		t.Fatalf("expected identical set from cache, got %+v", second)
	}
}

func TestCachedGeneratorBypassesVisualSets(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	gen := &countingGenerator{next: memory.NewStaticGenerator()}
	cache := NewCachedGenerator(newClient(mr), gen, time.Minute)

	params := app.GenerateParams{Difficulty: "Easy", Topic: "Math", Count: domain.QuestionsPerQuiz, Visual: true}

	for i := 1; i <= 2; i++ {
		if _, err := cache.Generate(context.Background(), params); err != nil {
			t.Fatalf("generate: %v", err)
		}
		if gen.calls != i {
			t.Fatalf("expected visual sets uncached, calls=%d want %d", gen.calls, i)
		}
	}
	if mr.Exists("gen:quiz:Easy:Math:5") {
		t.Fatalf("expected no redis key for visual sets")
	}
}

func TestCachedGeneratorHandsOutCopies(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	gen := &gatedGenerator{
		next:    memory.NewStaticGenerator(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	cache := NewCachedGenerator(newClient(mr), gen, time.Minute)
	params := app.GenerateParams{Difficulty: "Easy", Topic: "Math", Count: domain.QuestionsPerQuiz}

	// Two concurrent starts collapse onto one upstream generation.
	results := make([][]domain.Question, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = cache.Generate(context.Background(), params)
		}()
	}
	<-gen.entered
	time.Sleep(50 * time.Millisecond)
	close(gen.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
	}

	// One caller recording an answer must not be visible to the other.
	results[0][0].UserAnswer = 3
	results[0][0].Text = "tampered"
	if results[1][0].UserAnswer == 3 || results[1][0].Text == "tampered" {
		t.Fatalf("coalesced callers share one question slice: %+v", results[1][0])
	}
}

type gatedGenerator struct {
	next    app.QuestionGenerator
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedGenerator) Generate(ctx context.Context, params app.GenerateParams) ([]domain.Question, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.next.Generate(ctx, params)
}

type countingGenerator struct {
	next  app.QuestionGenerator
	calls int
}

func (g *countingGenerator) Generate(ctx context.Context, params app.GenerateParams) ([]domain.Question, error) {
	g.calls++
	return g.next.Generate(ctx, params)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
