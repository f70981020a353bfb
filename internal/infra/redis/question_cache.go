package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/solutionspma/godrive-academy/internal/domain"
)

// Resolver is the next question source in the chain (typically the in-process
// static-then-generator source).
type Resolver interface {
	Resolve(ctx context.Context, regionCode string, desiredCount int) (domain.QuestionSet, error)
}

// QuestionCache caches resolved question sets in Redis as JSON under
// coach:bank:{region}:{count} and falls back to the resolver on a miss.
// Full sets are cached (prompts and explanations included) so a cache hit can
// drive a whole session without touching the bank or the generator.
type QuestionCache struct {
	client *redis.Client
	next   Resolver
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, next Resolver, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		next:   next,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) Resolve(ctx context.Context, regionCode string, desiredCount int) (domain.QuestionSet, error) {
	key := c.key(regionCode, desiredCount)

	if set, ok := c.lookup(ctx, key); ok {
		return set, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if set, ok := c.lookup(ctx, key); ok {
			return set, nil
		}

		set, err := c.next.Resolve(ctx, regionCode, desiredCount)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		if data, err := json.Marshal(set); err == nil {
			// Best-effort: a failed cache write must not fail resolution.
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (c *QuestionCache) lookup(ctx context.Context, key string) (domain.QuestionSet, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.QuestionSet{}, false
	}
	var set domain.QuestionSet
	if err := json.Unmarshal(data, &set); err != nil {
		return domain.QuestionSet{}, false
	}
	return set, true
}

func (c *QuestionCache) key(regionCode string, count int) string {
	return "coach:bank:" + regionCode + ":" + strconv.Itoa(count)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
