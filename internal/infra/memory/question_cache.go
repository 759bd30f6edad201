package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizforge/internal/app"
	"quizforge/internal/domain"
)

// CachedGenerator caches generated question sets with a TTL so repeated
// starts for the same topic and difficulty do not re-charge the upstream
// generator. Visual sets bypass the cache: image bytes are produced per
// call and are too large to be worth holding.
type CachedGenerator struct {
	next  app.QuestionGenerator
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewCachedGenerator(next app.QuestionGenerator, ttl time.Duration) *CachedGenerator {
	return &CachedGenerator{
		next:  next,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedSet),
	}
}

func (c *CachedGenerator) Generate(ctx context.Context, params app.GenerateParams) ([]domain.Question, error) {
	if params.Visual {
		return c.next.Generate(ctx, params)
	}

	key := cacheKey(params)
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return cloneQuestions(entry.questions), nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.next.Generate(ctx, params)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cachedSet{
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

func cacheKey(params app.GenerateParams) string {
	return fmt.Sprintf("%s|%s|%d", params.Difficulty, params.Topic, params.Count)
}

// cloneQuestions copies the slice so every session owns its question set;
// a shared slice would leak one session's recorded answers into another.
func cloneQuestions(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	return out
}

func (c *CachedGenerator) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
