package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/yellowgoat/authsvc/internal/auth/domain"
	"github.com/yellowgoat/authsvc/pkg/httpx"
)

// Error codes used in response bodies. Login failures keep distinct
// codes for unknown-user and wrong-password; see service.ErrUserNotFound
// for the trade-off.
const (
	ErrorCodeInvalidRequest   = "invalid_request"
	ErrorCodeUserNotFound     = "user_not_found"
	ErrorCodeInvalidPassword  = "invalid_password"
	ErrorCodeInvalidChallenge = "invalid_or_expired_challenge"
	ErrorCodeInvalidCode      = "invalid_two_factor_code"
	ErrorCodeInvalidToken     = "invalid_token"
	ErrorCodeConflict         = "conflict"
	ErrorCodeNotFound         = "not_found"
	ErrorCodeUnauthorized     = "unauthorized"
	ErrorCodeServerError      = "server_error"
)

// APIError is a JSON error response. It implements the error interface
// so handlers can both return and write it.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes the error to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, e)
}

var (
	ErrAPIInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrAPIUserNotFound = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUserNotFound,
		Description: "user not found",
	}

	ErrAPIInvalidPassword = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidPassword,
		Description: "invalid password",
	}

	ErrAPIInvalidChallenge = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidChallenge,
		Description: "the pending two-factor token is invalid or has expired",
	}

	ErrAPIInvalidCode = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCode,
		Description: "the submitted two-factor code is not valid",
	}

	ErrAPIInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "invalid or missing access token",
	}

	ErrAPIServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "an internal error occurred",
	}
)

// Login status values returned by POST /v1/auth/login.
const (
	LoginStatusOK        = "ok"
	LoginStatusTwoFactor = "2fa_required"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Status string `json:"status"`

	// Set when Status == "ok".
	Token     string             `json:"token,omitempty"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
	User      *domain.PublicUser `json:"user,omitempty"`

	// Set when Status == "2fa_required".
	PendingToken string `json:"pending_token,omitempty"`
}

type TwoFactorVerifyRequest struct {
	PendingToken string `json:"pending_token"`
	Code         string `json:"code"`
}

type TwoFactorEnrollResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

type TwoFactorEnableRequest struct {
	Secret string `json:"secret"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type BootstrapRequest struct {
	AdminUsername string `json:"admin_username"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password,omitempty"`
}

type BootstrapResponse struct {
	AdminUserID string `json:"admin_user_id"`

	// AdminPassword is only returned when it was generated server-side;
	// it is shown exactly once.
	AdminPassword string `json:"admin_password,omitempty"`
}

type UserInfoResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type HealthChecks struct {
	Database string `json:"database"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

func loginResponseFromResult(res domain.LoginResult) LoginResponse {
	if res.TwoFactorRequired {
		return LoginResponse{
			Status:       LoginStatusTwoFactor,
			PendingToken: res.PendingToken,
		}
	}

	user := res.User
	expires := res.Session.ExpiresAt
	return LoginResponse{
		Status:    LoginStatusOK,
		Token:     res.Session.Token,
		ExpiresAt: &expires,
		User:      &user,
	}
}
