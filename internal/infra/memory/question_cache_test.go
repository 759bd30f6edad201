package memory

import (
	"context"
	"testing"
	"time"

	"quizforge/internal/app"
	"quizforge/internal/domain"
)

func TestCachedGeneratorCaches(t *testing.T) {
	gen := &countingGenerator{next: NewStaticGenerator()}
	cache := NewCachedGenerator(gen, time.Minute)

	params := app.GenerateParams{Difficulty: "Easy", Topic: "Math", Count: domain.QuestionsPerQuiz}

	if _, err := cache.Generate(context.Background(), params); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected generator once, got %d", gen.calls)
	}

	if _, err := cache.Generate(context.Background(), params); err != nil {
		t.Fatalf("generate 2: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected cache hit, generator calls %d", gen.calls)
	}

	other := params
	other.Topic = "History"
	if _, err := cache.Generate(context.Background(), other); err != nil {
		t.Fatalf("generate other topic: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("expected miss for new topic, generator calls %d", gen.calls)
	}
}

func TestCachedGeneratorBypassesVisualSets(t *testing.T) {
	gen := &countingGenerator{next: NewStaticGenerator()}
	cache := NewCachedGenerator(gen, time.Minute)

	params := app.GenerateParams{Difficulty: "Easy", Topic: "Math", Count: domain.QuestionsPerQuiz, Visual: true}

	for i := 1; i <= 2; i++ {
		if _, err := cache.Generate(context.Background(), params); err != nil {
			t.Fatalf("generate: %v", err)
		}
		if gen.calls != i {
			t.Fatalf("expected visual sets uncached, calls=%d want %d", gen.calls, i)
		}
	}
}

func TestCachedGeneratorHandsOutCopies(t *testing.T) {
	cache := NewCachedGenerator(NewStaticGenerator(), time.Minute)
	params := app.GenerateParams{Difficulty: "Easy", Topic: "Math", Count: domain.QuestionsPerQuiz}

	first, err := cache.Generate(context.Background(), params)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	first[0].UserAnswer = 3
	first[0].Text = "tampered"

	second, err := cache.Generate(context.Background(), params)
	if err != nil {
		t.Fatalf("generate 2: %v", err)
	}
	if second[0].Text == "tampered" || second[0].UserAnswer == 3 {
		t.Fatalf("cached set leaked a session's mutations: %+v", second[0])
	}
}

func TestCachedGeneratorExpires(t *testing.T) {
	gen := &countingGenerator{next: NewStaticGenerator()}
	cache := NewCachedGenerator(gen, time.Minute)

	current := time.Unix(1000, 0)
	cache.clock = func() time.Time { return current }

	params := app.GenerateParams{Difficulty: "Easy", Topic: "Math", Count: domain.QuestionsPerQuiz}
	if _, err := cache.Generate(context.Background(), params); err != nil {
		t.Fatalf("generate: %v", err)
	}

	// Jitter extends the TTL by at most 10%.
	current = current.Add(2 * time.Minute)
	if _, err := cache.Generate(context.Background(), params); err != nil {
		t.Fatalf("generate after expiry: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("expected regeneration after expiry, calls=%d", gen.calls)
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
