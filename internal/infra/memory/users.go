package memory

import (
	"context"
	"sort"
	"strings"

	"quiz-play-service/internal/domain"
)

type userRepo struct{ t *tx }

func (r userRepo) Create(_ context.Context, u *domain.User) error {
	u.ID = r.t.store.seq.users.Add(1)
	stored := *u
	return r.t.write(func(st *state) error {
		if err := st.checkUnique(stored); err != nil {
			return err
		}
		st.users[stored.ID] = stored
		return nil
	})
}

func (r userRepo) FindByID(_ context.Context, id int64) (domain.User, error) {
	u, ok := r.t.read().users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (r userRepo) FindByUsername(_ context.Context, username string) (domain.User, error) {
	for _, u := range r.t.read().users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r userRepo) FindByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range r.t.read().users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r userRepo) List(_ context.Context) ([]domain.User, error) {
	users := make([]domain.User, 0, len(r.t.read().users))
	for _, u := range r.t.read().users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r userRepo) Update(_ context.Context, u domain.User) error {
	return r.t.write(func(st *state) error {
		if _, ok := st.users[u.ID]; !ok {
			return domain.ErrUserNotFound
		}
		if err := st.checkUnique(u); err != nil {
			return err
		}
		st.users[u.ID] = u
		return nil
	})
}

// Delete removes the user together with everything that references it.
func (r userRepo) Delete(_ context.Context, id int64) error {
	return r.t.write(func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return domain.ErrUserNotFound
		}
		delete(st.users, id)
		delete(st.points, id)
		for tid, tok := range st.tokens {
			if tok.UserID == id {
				delete(st.tokens, tid)
			}
		}
		for iid, item := range st.inventory {
			if item.UserID == id {
				delete(st.inventory, iid)
			}
		}
		for pid, p := range st.purchases {
			if p.UserID == id {
				delete(st.purchases, pid)
			}
		}
		for sid, s := range st.sessions {
			if s.UserID != id {
				continue
			}
			delete(st.sessions, sid)
			for aid, a := range st.attempts {
				if a.SessionID == sid {
					delete(st.attempts, aid)
				}
			}
		}
		return nil
	})
}

func (st *state) checkUnique(u domain.User) error {
	for _, other := range st.users {
		if other.ID == u.ID {
			continue
		}
		if other.Username == u.Username {
			return domain.ErrUsernameTaken
		}
		if strings.EqualFold(other.Email, u.Email) {
			return domain.ErrEmailTaken
		}
	}
	return nil
}

type pointsRepo struct{ t *tx }

func (r pointsRepo) Create(_ context.Context, userID int64) error {
	return r.t.write(func(st *state) error {
		if _, ok := st.users[userID]; !ok {
			return domain.ErrUserNotFound
		}
		if _, ok := st.points[userID]; ok {
			return nil
		}
		st.points[userID] = domain.PointsAccount{UserID: userID}
		return nil
	})
}

func (r pointsRepo) Get(_ context.Context, userID int64) (domain.PointsAccount, error) {
	acct, ok := r.t.read().points[userID]
	if !ok {
		return domain.PointsAccount{}, domain.ErrAccountNotFound
	}
	return acct, nil
}

func (r pointsRepo) CompareAndSwap(_ context.Context, acct domain.PointsAccount, newTotal int64) (domain.PointsAccount, error) {
	// fail fast when acct came from this snapshot and a newer version was committed since
	if base, ok := r.t.base.points[acct.UserID]; ok && base.Version == acct.Version {
		if latest := r.t.store.committed.Load().points[acct.UserID]; latest.Version != acct.Version {
			return domain.PointsAccount{}, domain.ErrVersionMismatch
		}
	}
	next := domain.PointsAccount{UserID: acct.UserID, TotalPoints: newTotal, Version: acct.Version + 1}
	err := r.t.write(func(st *state) error {
		cur, ok := st.points[acct.UserID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		if cur.Version != acct.Version {
			return domain.ErrVersionMismatch
		}
		if newTotal < 0 {
			return domain.ErrInsufficientPoints
		}
		st.points[acct.UserID] = next
		return nil
	})
	if err != nil {
		return domain.PointsAccount{}, err
	}
	return next, nil
}

type tokenRepo struct{ t *tx }

func (r tokenRepo) Create(_ context.Context, tok *domain.PasswordResetToken) error {
	tok.ID = r.t.store.seq.tokens.Add(1)
	stored := *tok
	return r.t.write(func(st *state) error {
		if _, ok := st.users[stored.UserID]; !ok {
			return domain.ErrUserNotFound
		}
		st.tokens[stored.ID] = stored
		return nil
	})
}

func (r tokenRepo) FindByToken(_ context.Context, token string) (domain.PasswordResetToken, error) {
	for _, tok := range r.t.read().tokens {
		if tok.Token == token {
			return tok, nil
		}
	}
	return domain.PasswordResetToken{}, domain.ErrResetTokenInvalid
}

func (r tokenRepo) Delete(_ context.Context, id int64) error {
	return r.t.write(func(st *state) error {
		delete(st.tokens, id)
		return nil
	})
}

func (r tokenRepo) DeleteByUser(_ context.Context, userID int64) error {
	return r.t.write(func(st *state) error {
		for id, tok := range st.tokens {
			if tok.UserID == userID {
				delete(st.tokens, id)
			}
		}
		return nil
	})
}
