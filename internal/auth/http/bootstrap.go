package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/yellowgoat/authsvc/internal/auth/domain"
	"github.com/yellowgoat/authsvc/internal/auth/service"
	"github.com/yellowgoat/authsvc/pkg/httpx"
	"github.com/yellowgoat/authsvc/pkg/slogx"
)

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP creates the first admin account on an empty store. Disabled
// unless a bootstrap token is configured; usable exactly once.
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if h.BootstrapService.Token == "" {
		(&APIError{
			StatusCode:  http.StatusNotFound,
			Code:        ErrorCodeNotFound,
			Description: "bootstrap endpoint is not enabled",
		}).WriteError(w)
		return
	}

	token := r.Header.Get("X-Bootstrap-Token")
	if token == "" {
		(&APIError{
			StatusCode:  http.StatusUnauthorized,
			Code:        ErrorCodeUnauthorized,
			Description: "bootstrap token is required in X-Bootstrap-Token header",
		}).WriteError(w)
		return
	}

	var req BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrAPIInvalidRequest.WriteError(w)
		return
	}
	req.AdminUsername = strings.TrimSpace(req.AdminUsername)
	req.AdminEmail = strings.TrimSpace(req.AdminEmail)
	if req.AdminUsername == "" || req.AdminEmail == "" {
		ErrAPIInvalidRequest.WriteError(w)
		return
	}

	userID, password, err := h.BootstrapService.Bootstrap(ctx, token, domain.BootstrapData{
		AdminUsername: req.AdminUsername,
		AdminEmail:    req.AdminEmail,
		AdminPassword: strings.TrimSpace(req.AdminPassword),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBootstrapAlready):
			(&APIError{
				StatusCode:  http.StatusConflict,
				Code:        ErrorCodeConflict,
				Description: "system is already bootstrapped",
			}).WriteError(w)
		case errors.Is(err, service.ErrBootstrapUnauthorized):
			(&APIError{
				StatusCode:  http.StatusUnauthorized,
				Code:        ErrorCodeUnauthorized,
				Description: "invalid bootstrap token",
			}).WriteError(w)
		default:
			log.Error("bootstrap failed", "err", err)
			ErrAPIServerError.WriteError(w)
		}
		return
	}

	resp := BootstrapResponse{AdminUserID: userID}
	if req.AdminPassword == "" {
		resp.AdminPassword = password
	}

	httpx.WriteJSON(w, http.StatusCreated, resp)
}
