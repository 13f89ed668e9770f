package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"quiz-play-service/internal/domain"
)

const questionColumns = `id, text, difficulty, category, media_url, points_awarded`

type questionRepo struct{ q querier }

func (r questionRepo) Create(ctx context.Context, q *domain.Question) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO questions (text, difficulty, category, media_url, points_awarded)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		q.Text, q.Difficulty, q.Category, q.MediaURL, q.PointsAwarded,
	).Scan(&q.ID)
	if err != nil {
		return translate(fmt.Errorf("insert question: %w", err))
	}
	return r.insertOptions(ctx, q)
}

func (r questionRepo) Update(ctx context.Context, q *domain.Question) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE questions
		SET text = $2, difficulty = $3, category = $4, media_url = $5, points_awarded = $6
		WHERE id = $1`,
		q.ID, q.Text, q.Difficulty, q.Category, q.MediaURL, q.PointsAwarded,
	)
	if err != nil {
		return translate(fmt.Errorf("update question: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM response_options WHERE question_id = $1`, q.ID); err != nil {
		return fmt.Errorf("delete options: %w", err)
	}
	return r.insertOptions(ctx, q)
}

func (r questionRepo) insertOptions(ctx context.Context, q *domain.Question) error {
	for i := range q.Options {
		opt := &q.Options[i]
		err := r.q.QueryRow(ctx, `
			INSERT INTO response_options (question_id, position, text, correct)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			q.ID, i, opt.Text, opt.Correct,
		).Scan(&opt.ID)
		if err != nil {
			return translate(fmt.Errorf("insert option: %w", err))
		}
		opt.QuestionID = q.ID
	}
	return nil
}

func (r questionRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (r questionRepo) FindByID(ctx context.Context, id int64) (domain.Question, error) {
	q, err := scanQuestion(r.q.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
	if err != nil {
		return domain.Question{}, notFound(err, domain.ErrQuestionNotFound)
	}
	qs := []domain.Question{q}
	if err := r.attachOptions(ctx, qs); err != nil {
		return domain.Question{}, err
	}
	return qs[0], nil
}

func (r questionRepo) FindByDifficulty(ctx context.Context, level string) ([]domain.Question, error) {
	return r.list(ctx, `SELECT `+questionColumns+` FROM questions WHERE difficulty = $1 ORDER BY id`, level)
}

func (r questionRepo) List(ctx context.Context) ([]domain.Question, error) {
	return r.list(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY id`)
}

func (r questionRepo) list(ctx context.Context, sql string, args ...interface{}) ([]domain.Question, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	qs := []domain.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan question: %w", err)
		}
		qs = append(qs, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	if err := r.attachOptions(ctx, qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// attachOptions loads the options of qs in one round trip, ordered as created.
func (r questionRepo) attachOptions(ctx context.Context, qs []domain.Question) error {
	if len(qs) == 0 {
		return nil
	}
	ids := make([]int64, len(qs))
	index := make(map[int64]int, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
		index[q.ID] = i
		qs[i].Options = []domain.ResponseOption{}
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, question_id, text, correct
		FROM response_options
		WHERE question_id = ANY($1)
		ORDER BY question_id, position`, ids)
	if err != nil {
		return fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var opt domain.ResponseOption
		if err := rows.Scan(&opt.ID, &opt.QuestionID, &opt.Text, &opt.Correct); err != nil {
			return fmt.Errorf("scan option: %w", err)
		}
		i := index[opt.QuestionID]
		qs[i].Options = append(qs[i].Options, opt)
	}
	return rows.Err()
}

func (r questionRepo) FindOption(ctx context.Context, optionID int64) (domain.ResponseOption, error) {
	opt := domain.ResponseOption{ID: optionID}
	err := r.q.QueryRow(ctx, `SELECT question_id, text, correct FROM response_options WHERE id = $1`, optionID).
		Scan(&opt.QuestionID, &opt.Text, &opt.Correct)
	if err != nil {
		return domain.ResponseOption{}, notFound(err, domain.ErrOptionNotFound)
	}
	return opt, nil
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	err := row.Scan(&q.ID, &q.Text, &q.Difficulty, &q.Category, &q.MediaURL, &q.PointsAwarded)
	return q, err
}
