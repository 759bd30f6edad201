package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizforge/internal/app"
	"quizforge/internal/domain"
)

// CachedGenerator caches generated question sets in Redis so restarts and
// sibling processes share one upstream generation per topic/difficulty.
// Sets are stored as JSON under gen:quiz:{difficulty}:{topic}:{count}.
// Visual sets bypass the cache; their image bytes are produced per call.
type CachedGenerator struct {
	client *redis.Client
	next   app.QuestionGenerator
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCachedGenerator(client *redis.Client, next app.QuestionGenerator, ttl time.Duration) *CachedGenerator {
	return &CachedGenerator{
		client: client,
		next:   next,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CachedGenerator) Generate(ctx context.Context, params app.GenerateParams) ([]domain.Question, error) {
	if params.Visual {
		return c.next.Generate(ctx, params)
	}

	key := c.key(params)
	if questions, ok := c.load(ctx, key); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if questions, ok := c.load(ctx, key); ok {
			return questions, nil
		}

		questions, err := c.next.Generate(ctx, params)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(questions)
		if err != nil {
			return nil, fmt.Errorf("marshal question set: %w", err)
		}
		// best-effort cache fill
		_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()

		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	// Callers that coalesced on one flight each get their own copy; a
	// session must never share its question slice with another.
	return cloneQuestions(result.([]domain.Question)), nil
}

func cloneQuestions(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	return out
}

func (c *CachedGenerator) load(ctx context.Context, key string) ([]domain.Question, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, false
	}
	return questions, true
}

func (c *CachedGenerator) key(params app.GenerateParams) string {
	return fmt.Sprintf("gen:quiz:%s:%s:%d", params.Difficulty, params.Topic, params.Count)
}

func (c *CachedGenerator) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
