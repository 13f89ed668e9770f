package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"quiz-play-service/internal/domain"
)

// QuestionLoader fetches the questions of a difficulty level from storage.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, level string) ([]domain.Question, error)
}

// QuestionPool caches each difficulty level in Redis as one JSON document
// under quiz:questions:{level} and falls back to the loader on a miss.
type QuestionPool struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionPool(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionPool {
	return &QuestionPool{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *QuestionPool) Questions(ctx context.Context, level string) ([]domain.Question, error) {
	if qs, ok := p.cached(ctx, level); ok {
		return qs, nil
	}

	result, err, _ := p.sf.Do(level, func() (interface{}, error) {
		// another caller may have filled the key meanwhile
		if qs, ok := p.cached(ctx, level); ok {
			return qs, nil
		}
		qs, err := p.loader.LoadQuestions(ctx, level)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(qs)
		if err != nil {
			return nil, fmt.Errorf("encode questions: %w", err)
		}
		// a failed write only costs a reload later
		_ = p.client.Set(ctx, p.key(level), payload, p.ttlWithJitter()).Err()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	// decode a fresh copy so callers never share the singleflight result
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	var qs []domain.Question
	if err := json.Unmarshal(payload, &qs); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return qs, nil
}

// Invalidate deletes the cached level so the next read reloads it.
func (p *QuestionPool) Invalidate(ctx context.Context, level string) error {
	if err := p.client.Del(ctx, p.key(level)).Err(); err != nil {
		return fmt.Errorf("invalidate questions %q: %w", level, err)
	}
	return nil
}

func (p *QuestionPool) cached(ctx context.Context, level string) ([]domain.Question, bool) {
	payload, err := p.client.Get(ctx, p.key(level)).Bytes()
	if err != nil {
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(payload, &qs); err != nil {
		return nil, false
	}
	return qs, true
}

func (p *QuestionPool) key(level string) string {
	return "quiz:questions:" + level
}

func (p *QuestionPool) ttlWithJitter() time.Duration {
	if p.ttl <= 0 {
		return 0
	}
	jitterMax := int64(p.ttl) / 10
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ttl + time.Duration(p.rnd.Int63n(jitterMax+1))
}

