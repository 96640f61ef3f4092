package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/yellowgoat/authsvc/internal/auth/service"
	"github.com/yellowgoat/authsvc/pkg/httpx"
	"github.com/yellowgoat/authsvc/pkg/slogx"
)

// MFAHandler covers TOTP enrollment and enablement for the
// authenticated user.
type MFAHandler struct {
	MFAService *service.MFAService
}

// HandleEnroll generates a fresh TOTP secret and provisioning URI. The
// secret is not persisted; the user must confirm via HandleEnable.
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		ErrAPIInvalidToken.WriteError(w)
		return
	}

	enrollment, err := h.MFAService.EnrollTwoFactor(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			ErrAPIInvalidToken.WriteError(w)
			return
		}
		log.Error("2fa enrollment failed", "user_id", userID, "err", err)
		ErrAPIServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, TwoFactorEnrollResponse{
		Secret:          enrollment.Secret,
		ProvisioningURI: enrollment.ProvisioningURI,
	})
}

// HandleEnable commits the enrolled secret, turning 2FA on for the
// authenticated user in a single write.
func (h *MFAHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		ErrAPIInvalidToken.WriteError(w)
		return
	}

	var req TwoFactorEnableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrAPIInvalidRequest.WriteError(w)
		return
	}
	req.Secret = strings.TrimSpace(req.Secret)
	if req.Secret == "" {
		ErrAPIInvalidRequest.WriteError(w)
		return
	}

	if err := h.MFAService.EnableTwoFactor(ctx, userID, req.Secret); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			ErrAPIInvalidToken.WriteError(w)
		default:
			log.Error("2fa enable failed", "user_id", userID, "err", err)
			ErrAPIServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
