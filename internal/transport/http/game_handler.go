package http

import (
	"net/http"
	"strconv"

	"quiz-play-service/internal/domain"
)

type startSessionRequest struct {
	Difficulty string `json:"difficulty"`
	GameType   string `json:"gameType"`
}

func (a *api) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	session, err := a.svc.Sessions.Start(r.Context(), principal(r).UserID, req.Difficulty, req.GameType)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (a *api) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := idParam(r, "sessionId")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	session, err := a.svc.Sessions.Get(r.Context(), principal(r).UserID, sessionID)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *api) liveSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := a.svc.Sessions.Live(r.Context(), principal(r).UserID)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]int64{"sessionIds": ids})
}

type answerRequest struct {
	QuestionID     int64  `json:"questionId"`
	OptionID       int64  `json:"optionId"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
	AdvantageUsed  bool   `json:"advantageUsed"`
	PurchaseID     *int64 `json:"purchaseId,omitempty"`
}

func (req answerRequest) submission(sessionID int64) domain.Submission {
	return domain.Submission{
		SessionID:      sessionID,
		QuestionID:     req.QuestionID,
		OptionID:       req.OptionID,
		ResponseTimeMs: req.ResponseTimeMs,
		AdvantageUsed:  req.AdvantageUsed || req.PurchaseID != nil,
		PurchaseID:     req.PurchaseID,
	}
}

func (a *api) submitAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID, err := idParam(r, "sessionId")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	var req answerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	res, err := a.svc.Grader.GradeAnswer(r.Context(), principal(r).UserID, req.submission(sessionID))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) finishSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := idParam(r, "sessionId")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	session, err := a.svc.Sessions.Finish(r.Context(), principal(r).UserID, sessionID)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// gameQuestions serves a random batch in play form: ?difficulty=easy&count=5.
func (a *api) gameQuestions(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("difficulty")
	if level == "" {
		writeError(w, r, a.logger, domain.ErrMissingField)
		return
	}
	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, a.logger, errInvalidQuery("count"))
			return
		}
		count = n
	}
	views, err := a.svc.Questions.GameQuestions(r.Context(), level, count)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
