package http

import (
	"net/http"

	"quiz-play-service/internal/domain"
)

type registerRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	AdminCode   string `json:"adminCode"`
}

func (a *api) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	user, err := a.svc.Accounts.Register(r.Context(), domain.Registration{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		AdminCode:   req.AdminCode,
	})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	res, err := a.svc.Accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type googleLoginRequest struct {
	Token string `json:"token"`
}

func (a *api) loginWithGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	res, err := a.svc.Accounts.LoginWithGoogle(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// forgotPassword answers the same way whether or not the email is registered.
func (a *api) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if err := a.svc.Accounts.ForgotPassword(r.Context(), req.Email); err != nil && statusFor(err) != http.StatusNotFound {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "if the email is registered, a reset link has been sent"})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (a *api) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if err := a.svc.Accounts.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (a *api) myPoints(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	total, err := a.svc.Ledger.Balance(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"userId": p.UserID, "totalPoints": total})
}

type hintRequest struct {
	QuestionID int64 `json:"questionId"`
}

func (a *api) purchaseHint(w http.ResponseWriter, r *http.Request) {
	var req hintRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	hint, err := a.svc.Hints.PurchaseHint(r.Context(), principal(r).UserID, req.QuestionID)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hint)
}

func (a *api) profile(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if !principal(r).CanActFor(userID) {
		writeError(w, r, a.logger, domain.ErrNotOwner)
		return
	}
	profile, err := a.svc.Accounts.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type updateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	Email       *string `json:"email"`
}

func (a *api) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	// profiles are edited by their owner only
	if principal(r).UserID != userID {
		writeError(w, r, a.logger, domain.ErrNotOwner)
		return
	}
	var req updateProfileRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	user, err := a.svc.Accounts.UpdateProfile(r.Context(), userID, req.DisplayName, req.Email)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
