package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/yellowgoat/authsvc/internal/auth/metrics"
	"github.com/yellowgoat/authsvc/internal/auth/service"
	"github.com/yellowgoat/authsvc/pkg/httpx"
	"github.com/yellowgoat/authsvc/pkg/slogx"
)

// LoginHandler drives the password step of authentication. Users with
// 2FA enabled get a pending-challenge token and must complete the
// verify step; everyone else gets a session directly.
type LoginHandler struct {
	AuthService *service.AuthService
	Metrics     metrics.Recorder
}

func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrAPIInvalidRequest.WriteError(w)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		ErrAPIInvalidRequest.WriteError(w)
		return
	}

	result, err := h.AuthService.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			h.Metrics.RecordLoginFailure(ErrorCodeUserNotFound)
			ErrAPIUserNotFound.WriteError(w)
		case errors.Is(err, service.ErrInvalidPassword):
			h.Metrics.RecordLoginFailure(ErrorCodeInvalidPassword)
			ErrAPIInvalidPassword.WriteError(w)
		default:
			log.Error("login failed", "err", err)
			h.Metrics.RecordLoginFailure(ErrorCodeServerError)
			ErrAPIServerError.WriteError(w)
		}
		return
	}

	if result.TwoFactorRequired {
		h.Metrics.RecordChallengeIssued()
	} else {
		h.Metrics.RecordLoginSuccess()
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponseFromResult(result))
}

// HandleVerify completes a pending 2FA challenge and issues the
// session.
func (h *LoginHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req TwoFactorVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrAPIInvalidRequest.WriteError(w)
		return
	}
	if req.PendingToken == "" || req.Code == "" {
		ErrAPIInvalidRequest.WriteError(w)
		return
	}

	result, err := h.AuthService.VerifyTwoFactor(ctx, req.PendingToken, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidChallenge):
			h.Metrics.RecordTwoFactorFailure(ErrorCodeInvalidChallenge)
			ErrAPIInvalidChallenge.WriteError(w)
		case errors.Is(err, service.ErrInvalidTwoFactorCode):
			h.Metrics.RecordTwoFactorFailure(ErrorCodeInvalidCode)
			ErrAPIInvalidCode.WriteError(w)
		default:
			log.Error("2fa verification failed", "err", err)
			h.Metrics.RecordTwoFactorFailure(ErrorCodeServerError)
			ErrAPIServerError.WriteError(w)
		}
		return
	}

	h.Metrics.RecordTwoFactorSuccess()
	httpx.WriteJSON(w, http.StatusOK, loginResponseFromResult(result))
}
