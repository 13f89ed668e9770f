package app

import (
	"context"
	"log/slog"
	"strings"

	"quiz-play-service/internal/domain"
)

// DefaultBatchSize is the batch length used when a caller asks for none.
const DefaultBatchSize = 10

// QuestionBank serves randomized question batches and administers the question set.
type QuestionBank struct {
	uow       UnitOfWork
	pool      QuestionPool
	batchSize int
	pick      func(n int) int
	logger    *slog.Logger
}

// NewQuestionBank builds a bank. When pool is nil batches are read straight from storage.
func NewQuestionBank(uow UnitOfWork, pool QuestionPool, batchSize int, opts ...Option) *QuestionBank {
	o := buildOptions(opts)
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &QuestionBank{uow: uow, pool: pool, batchSize: batchSize, pick: o.pick, logger: o.logger}
}

// ByDifficulty returns every question of the given level.
func (b *QuestionBank) ByDifficulty(ctx context.Context, level string) ([]domain.Question, error) {
	if b.pool != nil {
		return b.pool.Questions(ctx, level)
	}
	return NewStoredQuestions(b.uow).LoadQuestions(ctx, level)
}

// StoredQuestions reads question levels straight from storage. It is the
// loader behind a caching QuestionPool.
type StoredQuestions struct {
	uow UnitOfWork
}

func NewStoredQuestions(uow UnitOfWork) StoredQuestions {
	return StoredQuestions{uow: uow}
}

func (s StoredQuestions) LoadQuestions(ctx context.Context, level string) ([]domain.Question, error) {
	var questions []domain.Question
	err := s.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		questions, err = r.Questions().FindByDifficulty(ctx, level)
		return err
	})
	return questions, err
}

// RandomBatch returns up to count distinct questions of the level in random order.
func (b *QuestionBank) RandomBatch(ctx context.Context, level string, count int) ([]domain.Question, error) {
	if count <= 0 {
		count = b.batchSize
	}
	all, err := b.ByDifficulty(ctx, level)
	if err != nil {
		return nil, err
	}
	shuffled := make([]domain.Question, len(all))
	copy(shuffled, all)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := b.pick(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	if count < len(shuffled) {
		shuffled = shuffled[:count]
	}
	return shuffled, nil
}

// GameQuestions returns a random batch rendered without correctness flags.
func (b *QuestionBank) GameQuestions(ctx context.Context, level string, count int) ([]domain.QuestionView, error) {
	batch, err := b.RandomBatch(ctx, level, count)
	if err != nil {
		return nil, err
	}
	views := make([]domain.QuestionView, 0, len(batch))
	for _, q := range batch {
		views = append(views, PlayView(q))
	}
	return views, nil
}

// PlayView projects a question for a player.
func PlayView(q domain.Question) domain.QuestionView {
	options := make([]domain.OptionView, 0, len(q.Options))
	for _, opt := range q.Options {
		options = append(options, domain.OptionView{ID: opt.ID, Text: opt.Text})
	}
	return domain.QuestionView{
		ID:            q.ID,
		Text:          q.Text,
		Difficulty:    q.Difficulty,
		Category:      q.Category,
		MediaURL:      q.MediaURL,
		PointsAwarded: q.PointsAwarded,
		Options:       options,
	}
}

// Get returns one question including correctness flags.
func (b *QuestionBank) Get(ctx context.Context, id int64) (domain.Question, error) {
	var q domain.Question
	err := b.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		q, err = r.Questions().FindByID(ctx, id)
		return err
	})
	return q, err
}

func (b *QuestionBank) List(ctx context.Context) ([]domain.Question, error) {
	var questions []domain.Question
	err := b.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		questions, err = r.Questions().List(ctx)
		return err
	})
	return questions, err
}

// Create validates and stores a new question with its options.
func (b *QuestionBank) Create(ctx context.Context, q domain.Question) (domain.Question, error) {
	if err := validateQuestion(q); err != nil {
		return domain.Question{}, err
	}
	q.ID = 0
	q.Options = append([]domain.ResponseOption(nil), q.Options...)
	err := b.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		return r.Questions().Create(ctx, &q)
	})
	if err != nil {
		return domain.Question{}, err
	}
	b.invalidate(ctx, q.Difficulty)
	return q, nil
}

// Update replaces a question and its whole option set.
func (b *QuestionBank) Update(ctx context.Context, id int64, q domain.Question) (domain.Question, error) {
	if err := validateQuestion(q); err != nil {
		return domain.Question{}, err
	}
	q.ID = id
	q.Options = append([]domain.ResponseOption(nil), q.Options...)
	var previous string
	err := b.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		existing, err := r.Questions().FindByID(ctx, id)
		if err != nil {
			return err
		}
		previous = existing.Difficulty
		return r.Questions().Update(ctx, &q)
	})
	if err != nil {
		return domain.Question{}, err
	}
	b.invalidate(ctx, previous)
	if previous != q.Difficulty {
		b.invalidate(ctx, q.Difficulty)
	}
	return q, nil
}

// Delete removes a question and its options.
func (b *QuestionBank) Delete(ctx context.Context, id int64) error {
	var level string
	err := b.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		existing, err := r.Questions().FindByID(ctx, id)
		if err != nil {
			return err
		}
		level = existing.Difficulty
		return r.Questions().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	b.invalidate(ctx, level)
	return nil
}

func (b *QuestionBank) invalidate(ctx context.Context, level string) {
	if b.pool == nil {
		return
	}
	if err := b.pool.Invalidate(ctx, level); err != nil {
		b.logger.Warn("question pool invalidation failed", "difficulty", level, "error", err)
	}
}

func validateQuestion(q domain.Question) error {
	if strings.TrimSpace(q.Text) == "" || strings.TrimSpace(q.Difficulty) == "" {
		return domain.ErrMissingField
	}
	if q.PointsAwarded < 0 {
		return domain.ErrNegativeAmount
	}
	correct := 0
	for _, opt := range q.Options {
		if strings.TrimSpace(opt.Text) == "" {
			return domain.ErrMissingField
		}
		if opt.Correct {
			correct++
		}
	}
	if correct != 1 {
		return domain.ErrNoCorrectOption
	}
	return nil
}
