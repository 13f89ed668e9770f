package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quiz-play-service/internal/domain"
)

// QuestionLoader fetches the questions of a difficulty level from storage.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, level string) ([]domain.Question, error)
}

// QuestionPool caches question levels with a TTL to avoid repeated storage reads.
type QuestionPool struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedLevel
}

type cachedLevel struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionPool(loader QuestionLoader, ttl time.Duration) *QuestionPool {
	return &QuestionPool{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedLevel),
	}
}

func (p *QuestionPool) Questions(ctx context.Context, level string) ([]domain.Question, error) {
	if qs, ok := p.lookup(level); ok {
		return qs, nil
	}

	result, err, _ := p.sf.Do(level, func() (interface{}, error) {
		if qs, ok := p.lookup(level); ok {
			return qs, nil
		}
		qs, err := p.loader.LoadQuestions(ctx, level)
		if err != nil {
			return nil, err
		}
		expiresAt := p.clock().Add(p.ttlWithJitter())
		p.mu.Lock()
		p.cache[level] = cachedLevel{questions: qs, expiresAt: expiresAt}
		p.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

// Invalidate drops a cached level so the next read reloads it.
func (p *QuestionPool) Invalidate(_ context.Context, level string) error {
	p.mu.Lock()
	delete(p.cache, level)
	p.mu.Unlock()
	return nil
}

func (p *QuestionPool) lookup(level string) ([]domain.Question, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.cache[level]
	if !ok || !entry.expiresAt.After(p.clock()) {
		return nil, false
	}
	return cloneQuestions(entry.questions), true
}

// StaticQuestionLoader serves fixed question sets (useful for tests/demos).
type StaticQuestionLoader struct {
	levels map[string][]domain.Question
}

func NewStaticQuestionLoader(levels map[string][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{levels: levels}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, level string) ([]domain.Question, error) {
	return cloneQuestions(l.levels[level]), nil
}

func (p *QuestionPool) ttlWithJitter() time.Duration {
	if p.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(p.ttl) / 10
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ttl + time.Duration(p.rnd.Int63n(jitterMax+1))
}

func cloneQuestions(qs []domain.Question) []domain.Question {
	if qs == nil {
		return nil
	}
	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		out[i] = copyQuestion(q)
	}
	return out
}
