package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"quiz-play-service/internal/domain"
)

const userColumns = `id, username, email, password_hash, display_name, role, level, registered_at`

type userRepo struct{ q querier }

func (r userRepo) Create(ctx context.Context, u *domain.User) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, display_name, role, level, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		u.Username, u.Email, u.PasswordHash, u.DisplayName, string(u.Role), u.Level, u.RegisteredAt,
	).Scan(&u.ID)
	if err != nil {
		return translate(fmt.Errorf("insert user: %w", err))
	}
	return nil
}

func (r userRepo) FindByID(ctx context.Context, id int64) (domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r userRepo) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r userRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r userRepo) findOne(ctx context.Context, sql string, arg interface{}) (domain.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, sql, arg))
	if err != nil {
		return domain.User{}, notFound(err, domain.ErrUserNotFound)
	}
	return u, nil
}

func (r userRepo) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r userRepo) Update(ctx context.Context, u domain.User) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, display_name = $5, role = $6, level = $7
		WHERE id = $1`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.DisplayName, string(u.Role), u.Level,
	)
	if err != nil {
		return translate(fmt.Errorf("update user: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Delete relies on ON DELETE CASCADE for dependent rows.
func (r userRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName, &role, &u.Level, &u.RegisteredAt)
	u.Role = domain.Role(role)
	return u, err
}

type pointsRepo struct{ q querier }

func (r pointsRepo) Create(ctx context.Context, userID int64) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO points_accounts (user_id, total_points, version)
		VALUES ($1, 0, 0)
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return translate(fmt.Errorf("insert points account: %w", err))
	}
	return nil
}

func (r pointsRepo) Get(ctx context.Context, userID int64) (domain.PointsAccount, error) {
	acct := domain.PointsAccount{UserID: userID}
	err := r.q.QueryRow(ctx, `SELECT total_points, version FROM points_accounts WHERE user_id = $1`, userID).
		Scan(&acct.TotalPoints, &acct.Version)
	if err != nil {
		return domain.PointsAccount{}, notFound(err, domain.ErrAccountNotFound)
	}
	return acct, nil
}

// CompareAndSwap writes only while the stored version still matches; a
// concurrent writer leaves zero affected rows.
func (r pointsRepo) CompareAndSwap(ctx context.Context, acct domain.PointsAccount, newTotal int64) (domain.PointsAccount, error) {
	next := domain.PointsAccount{UserID: acct.UserID, TotalPoints: newTotal}
	err := r.q.QueryRow(ctx, `
		UPDATE points_accounts
		SET total_points = $1, version = version + 1
		WHERE user_id = $2 AND version = $3
		RETURNING version`,
		newTotal, acct.UserID, acct.Version,
	).Scan(&next.Version)
	if err != nil {
		return domain.PointsAccount{}, notFound(err, domain.ErrVersionMismatch)
	}
	return next, nil
}

type tokenRepo struct{ q querier }

func (r tokenRepo) Create(ctx context.Context, t *domain.PasswordResetToken) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO password_reset_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id`,
		t.UserID, t.Token, t.ExpiresAt,
	).Scan(&t.ID)
	if err != nil {
		return translate(fmt.Errorf("insert reset token: %w", err))
	}
	return nil
}

func (r tokenRepo) FindByToken(ctx context.Context, token string) (domain.PasswordResetToken, error) {
	t := domain.PasswordResetToken{Token: token}
	err := r.q.QueryRow(ctx, `SELECT id, user_id, expires_at FROM password_reset_tokens WHERE token = $1`, token).
		Scan(&t.ID, &t.UserID, &t.ExpiresAt)
	if err != nil {
		return domain.PasswordResetToken{}, notFound(err, domain.ErrResetTokenInvalid)
	}
	return t, nil
}

func (r tokenRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM password_reset_tokens WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}
	return nil
}

func (r tokenRepo) DeleteByUser(ctx context.Context, userID int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete reset tokens: %w", err)
	}
	return nil
}
