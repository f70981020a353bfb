package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/solutionspma/godrive-academy/internal/domain"
)

// BankLoader fetches the pre-generated static dataset for a region.
type BankLoader interface {
	LoadBank(ctx context.Context, regionCode string) (domain.QuestionSet, error)
}

// Generator produces a fresh question set when no static dataset exists.
type Generator interface {
	Generate(ctx context.Context, regionCode string, count int) (domain.QuestionSet, error)
}

// QuestionSource resolves question sets: static bank first, generative
// fallback second. Results are cached by (region, count) with singleflight
// protecting concurrent fills. A ttl <= 0 caches for the process lifetime.
type QuestionSource struct {
	bank      BankLoader
	generator Generator
	ttl       time.Duration
	clock     func() time.Time
	sf        singleflight.Group
	rnd       *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	set       domain.QuestionSet
	expiresAt time.Time
}

func NewQuestionSource(bank BankLoader, generator Generator, ttl time.Duration) *QuestionSource {
	return &QuestionSource{
		bank:      bank,
		generator: generator,
		ttl:       ttl,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:     make(map[string]cachedSet),
	}
}

func (s *QuestionSource) Resolve(ctx context.Context, regionCode string, desiredCount int) (domain.QuestionSet, error) {
	if !domain.ValidRegionCode(regionCode) {
		return domain.QuestionSet{}, fmt.Errorf("region code %q: must be two uppercase letters", regionCode)
	}
	if desiredCount < 1 {
		return domain.QuestionSet{}, fmt.Errorf("desired count %d: must be at least 1", desiredCount)
	}

	key := cacheKey(regionCode, desiredCount)

	if set, ok := s.cached(key); ok {
		return set, nil
	}

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		if set, ok := s.cached(key); ok {
			return set, nil
		}

		set, err := s.resolve(ctx, regionCode, desiredCount)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		s.mu.Lock()
		s.cache[key] = cachedSet{set: set, expiresAt: s.expiry()}
		s.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (s *QuestionSource) resolve(ctx context.Context, regionCode string, desiredCount int) (domain.QuestionSet, error) {
	if s.bank != nil {
		set, err := s.bank.LoadBank(ctx, regionCode)
		if err == nil && len(set.Questions) > 0 {
			set.RegionCode = regionCode
			set.Source = domain.SourceStatic
			return set, nil
		}
	}

	if s.generator != nil {
		set, err := s.generator.Generate(ctx, regionCode, desiredCount)
		if err == nil && len(set.Questions) > 0 {
			set.RegionCode = regionCode
			set.Source = domain.SourceGenerated
			if set.GeneratedAt.IsZero() {
				set.GeneratedAt = s.clock()
			}
			return set, nil
		}
	}

	return domain.QuestionSet{}, fmt.Errorf("region %s: %w", regionCode, domain.ErrNoQuestionsAvailable)
}

func (s *QuestionSource) cached(key string) (domain.QuestionSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[key]
	if !ok {
		return domain.QuestionSet{}, false
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock()) {
		return domain.QuestionSet{}, false
	}
	return entry.set, true
}

// expiry returns the cache deadline, zero for process-lifetime caching,
// with up to 10% jitter to spread expirations.
func (s *QuestionSource) expiry() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	jitterMax := int64(s.ttl) / 10
	return s.clock().Add(s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1)))
}

func cacheKey(regionCode string, count int) string {
	return fmt.Sprintf("%s:%d", regionCode, count)
}
