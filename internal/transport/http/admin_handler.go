package http

import (
	"net/http"

	"quiz-play-service/internal/domain"
)

func (a *api) listQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := a.svc.Questions.List(r.Context())
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

func (a *api) getQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	q, err := a.svc.Questions.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *api) createQuestion(w http.ResponseWriter, r *http.Request) {
	var q domain.Question
	if err := decode(r, &q); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	created, err := a.svc.Questions.Create(r.Context(), q)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *api) updateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	var q domain.Question
	if err := decode(r, &q); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	updated, err := a.svc.Questions.Update(r.Context(), id, q)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *api) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if err := a.svc.Questions.Delete(r.Context(), id); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.svc.Accounts.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type updateUserRequest struct {
	Role  *domain.Role `json:"role"`
	Level *string      `json:"level"`
}

func (a *api) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	var req updateUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	user, err := a.svc.Accounts.UpdateUser(r.Context(), id, req.Role, req.Level)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *api) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if err := a.svc.Accounts.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) createCosmetic(w http.ResponseWriter, r *http.Request) {
	var c domain.Cosmetic
	if err := decode(r, &c); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	created, err := a.svc.Store.CreateCosmetic(r.Context(), c)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *api) updateCosmetic(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	var c domain.Cosmetic
	if err := decode(r, &c); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	updated, err := a.svc.Store.UpdateCosmetic(r.Context(), id, c)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *api) deleteCosmetic(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if err := a.svc.Store.DeleteCosmetic(r.Context(), id); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) createAdvantage(w http.ResponseWriter, r *http.Request) {
	var adv domain.Advantage
	if err := decode(r, &adv); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	created, err := a.svc.Store.CreateAdvantage(r.Context(), adv)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *api) updateAdvantage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	var adv domain.Advantage
	if err := decode(r, &adv); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	updated, err := a.svc.Store.UpdateAdvantage(r.Context(), id, adv)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *api) deleteAdvantage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if err := a.svc.Store.DeleteAdvantage(r.Context(), id); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
