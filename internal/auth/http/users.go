package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yellowgoat/authsvc/internal/auth/domain"
	"github.com/yellowgoat/authsvc/internal/auth/service"
	"github.com/yellowgoat/authsvc/internal/auth/store"
	"github.com/yellowgoat/authsvc/pkg/httpx"
	"github.com/yellowgoat/authsvc/pkg/slogx"
)

// UserInfoHandler returns the authenticated caller's identity, derived
// entirely from the verified token claims.
type UserInfoHandler struct{}

func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := httpx.ClaimsFromCtx(ctx)
	if !ok || claims.Subject == "" {
		ErrAPIInvalidToken.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, UserInfoResponse{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	})
}

// UsersHandler covers user-record administration.
type UsersHandler struct {
	UserService *service.UserService
}

// HandleList returns all users, credential material stripped.
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	users, err := h.UserService.ListUsers(ctx)
	if err != nil {
		log.Error("failed to list users", "err", err)
		ErrAPIServerError.WriteError(w)
		return
	}

	public := make([]domain.PublicUser, len(users))
	for i, u := range users {
		public[i] = u.Public()
	}

	httpx.WriteJSON(w, http.StatusOK, public)
}

// HandleGet returns a single user by path id.
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := r.PathValue("id")
	if userID == "" {
		ErrAPIInvalidRequest.WriteError(w)
		return
	}

	user, err := h.UserService.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			(&APIError{
				StatusCode:  http.StatusNotFound,
				Code:        ErrorCodeNotFound,
				Description: "user not found",
			}).WriteError(w)
			return
		}
		log.Error("failed to load user", "user_id", userID, "err", err)
		ErrAPIServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, user.Public())
}

// HandleCreate inserts a new user record. Admin only; there is no
// self-service signup.
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrAPIInvalidRequest.WriteError(w)
		return
	}

	user, err := h.UserService.CreateUser(ctx, req.Username, req.Email, req.Password, domain.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidNewUser):
			ErrAPIInvalidRequest.WriteError(w)
		case errors.Is(err, service.ErrUsernameTaken):
			(&APIError{
				StatusCode:  http.StatusConflict,
				Code:        ErrorCodeConflict,
				Description: "username is already taken",
			}).WriteError(w)
		default:
			log.Error("failed to create user", "err", err)
			ErrAPIServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, user.Public())
}
