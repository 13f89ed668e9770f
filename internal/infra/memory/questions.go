package memory

import (
	"context"
	"sort"

	"quiz-play-service/internal/domain"
)

type questionRepo struct{ t *tx }

// Create assigns fresh ids to the question and each of its options.
func (r questionRepo) Create(_ context.Context, q *domain.Question) error {
	q.ID = r.t.store.seq.questions.Add(1)
	r.assignOptions(q)
	stored := copyQuestion(*q)
	return r.t.write(func(st *state) error {
		st.putQuestion(stored)
		return nil
	})
}

// Update replaces the question and its whole option set; old options are dropped.
func (r questionRepo) Update(_ context.Context, q *domain.Question) error {
	r.assignOptions(q)
	stored := copyQuestion(*q)
	return r.t.write(func(st *state) error {
		if _, ok := st.questions[stored.ID]; !ok {
			return domain.ErrQuestionNotFound
		}
		st.dropQuestion(stored.ID)
		st.putQuestion(stored)
		return nil
	})
}

func (r questionRepo) Delete(_ context.Context, id int64) error {
	return r.t.write(func(st *state) error {
		if _, ok := st.questions[id]; !ok {
			return domain.ErrQuestionNotFound
		}
		st.dropQuestion(id)
		return nil
	})
}

func (r questionRepo) FindByID(_ context.Context, id int64) (domain.Question, error) {
	q, ok := r.t.read().questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return copyQuestion(q), nil
}

func (r questionRepo) FindByDifficulty(_ context.Context, level string) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range r.t.read().questions {
		if q.Difficulty == level {
			out = append(out, copyQuestion(q))
		}
	}
	sortQuestions(out)
	return out, nil
}

func (r questionRepo) List(_ context.Context) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(r.t.read().questions))
	for _, q := range r.t.read().questions {
		out = append(out, copyQuestion(q))
	}
	sortQuestions(out)
	return out, nil
}

func (r questionRepo) FindOption(_ context.Context, optionID int64) (domain.ResponseOption, error) {
	st := r.t.read()
	qid, ok := st.options[optionID]
	if !ok {
		return domain.ResponseOption{}, domain.ErrOptionNotFound
	}
	for _, opt := range st.questions[qid].Options {
		if opt.ID == optionID {
			return opt, nil
		}
	}
	return domain.ResponseOption{}, domain.ErrOptionNotFound
}

func (r questionRepo) assignOptions(q *domain.Question) {
	for i := range q.Options {
		q.Options[i].ID = r.t.store.seq.options.Add(1)
		q.Options[i].QuestionID = q.ID
	}
}

func (st *state) putQuestion(q domain.Question) {
	st.questions[q.ID] = q
	for _, opt := range q.Options {
		st.options[opt.ID] = q.ID
	}
}

func (st *state) dropQuestion(id int64) {
	for _, opt := range st.questions[id].Options {
		delete(st.options, opt.ID)
	}
	delete(st.questions, id)
}

func copyQuestion(q domain.Question) domain.Question {
	q.Options = append([]domain.ResponseOption(nil), q.Options...)
	return q
}

func sortQuestions(qs []domain.Question) {
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
}
