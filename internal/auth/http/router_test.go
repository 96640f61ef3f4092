package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yellowgoat/authsvc/internal/auth/domain"
	"github.com/yellowgoat/authsvc/internal/auth/metrics"
	"github.com/yellowgoat/authsvc/internal/auth/service"
	"github.com/yellowgoat/authsvc/internal/auth/store"
	"github.com/yellowgoat/authsvc/internal/auth/store/drivers/sqlite"
	"github.com/yellowgoat/authsvc/pkg/cryptox"
	"github.com/yellowgoat/authsvc/pkg/idx"
	"github.com/yellowgoat/authsvc/pkg/jwtx"
	"github.com/yellowgoat/authsvc/pkg/slogx"

	"github.com/pquerna/otp/totp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const testIssuer = "authsvc-test"

var testSecret = []byte("test-signing-secret-0123456789ab")

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "authsvc-http-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

type testEnv struct {
	router *Router
	store  store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	logger := slogx.New(slogx.Config{Service: "authsvc", Env: "dev", Level: "error", Format: "text"})

	router := NewRouter("test", st, collector, registry, logger)
	router.AuthService = &service.AuthService{
		Store:    st,
		Signer:   jwtx.NewSigner(testSecret),
		Verifier: jwtx.NewVerifier(testSecret, testIssuer),
		Issuer:   testIssuer,
	}
	router.MFAService = &service.MFAService{Store: st, Issuer: testIssuer}
	router.UserService = &service.UserService{Store: st}
	router.BootstrapService = &service.BootstrapService{Store: st, Token: "setup-token"}
	router.ApplyRoutes()

	return &testEnv{router: router, store: st}
}

func (e *testEnv) createUser(t *testing.T, username, password, totpSecret string, role domain.Role) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
	}
	if totpSecret != "" {
		u.TOTPSecret = &totpSecret
		u.TwoFAEnabled = true
	}
	require.NoError(t, e.store.Users().CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, username, password string) LoginResponse {
	t.Helper()

	rec := e.do(t, "POST", "/v1/auth/login", "", LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func newTOTPSecret(t *testing.T, account string) string {
	t.Helper()

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      testIssuer,
		AccountName: account,
		SecretSize:  20,
	})
	require.NoError(t, err)
	return key.Secret()
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", "s3cret", "", domain.RoleUser)

	resp := env.login(t, "alice", "s3cret")
	require.Equal(t, LoginStatusOK, resp.Status)
	require.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.ExpiresAt)
	require.NotNil(t, resp.User)
	require.Equal(t, "alice", resp.User.Username)
	require.Empty(t, resp.PendingToken)
}

func TestLoginEndpoint_Failures(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", "s3cret", "", domain.RoleUser)

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"unknown user", LoginRequest{Username: "ghost", Password: "x"}, http.StatusUnauthorized, ErrorCodeUserNotFound},
		{"wrong password", LoginRequest{Username: "alice", Password: "bad"}, http.StatusUnauthorized, ErrorCodeInvalidPassword},
		{"missing fields", LoginRequest{Username: "alice"}, http.StatusBadRequest, ErrorCodeInvalidRequest},
		{"malformed body", "not json", http.StatusBadRequest, ErrorCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "POST", "/v1/auth/login", "", tt.body)
			require.Equal(t, tt.wantCode, rec.Code)

			var apiErr APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
			require.Equal(t, tt.wantErr, apiErr.Code)
		})
	}
}

func TestTwoFactorFlow(t *testing.T) {
	env := newTestEnv(t)
	secret := newTOTPSecret(t, "carol")
	env.createUser(t, "carol", "s3cret", secret, domain.RoleUser)

	login := env.login(t, "carol", "s3cret")
	require.Equal(t, LoginStatusTwoFactor, login.Status)
	require.NotEmpty(t, login.PendingToken)
	require.Empty(t, login.Token, "no session before the code is verified")

	// The pending token is refused by protected endpoints
	rec := env.do(t, "GET", "/v1/userinfo", login.PendingToken, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong code
	rec = env.do(t, "POST", "/v1/auth/2fa/verify", "",
		TwoFactorVerifyRequest{PendingToken: login.PendingToken, Code: "000000"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Correct code completes the login
	code, err := totp.GenerateCode(secret, time.Now().UTC())
	require.NoError(t, err)

	rec = env.do(t, "POST", "/v1/auth/2fa/verify", "",
		TwoFactorVerifyRequest{PendingToken: login.PendingToken, Code: code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, LoginStatusOK, resp.Status)
	require.NotEmpty(t, resp.Token)

	// And the session token works
	rec = env.do(t, "GET", "/v1/userinfo", resp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestEnrollAndEnableFlow(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", "s3cret", "", domain.RoleUser)

	session := env.login(t, "alice", "s3cret")

	rec := env.do(t, "POST", "/v1/auth/2fa/enroll", session.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var enrollment TwoFactorEnrollResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enrollment))
	require.NotEmpty(t, enrollment.Secret)
	require.Contains(t, enrollment.ProvisioningURI, "otpauth://totp/")

	rec = env.do(t, "POST", "/v1/auth/2fa/enable", session.Token,
		TwoFactorEnableRequest{Secret: enrollment.Secret})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Next login requires the second factor
	login := env.login(t, "alice", "s3cret")
	require.Equal(t, LoginStatusTwoFactor, login.Status)
}

func TestEnroll_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/v1/auth/2fa/enroll", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserinfoEndpoint(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "s3cret", "", domain.RoleUser)

	session := env.login(t, "alice", "s3cret")

	rec := env.do(t, "GET", "/v1/userinfo", session.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var info UserInfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Equal(t, user.ID, info.UserID)
	require.Equal(t, "alice", info.Username)
	require.Equal(t, "user", info.Role)
}

func TestUsersAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "root", "s3cret", "", domain.RoleAdmin)
	env.createUser(t, "alice", "s3cret", "", domain.RoleUser)

	adminSession := env.login(t, "root", "s3cret")
	userSession := env.login(t, "alice", "s3cret")

	// Create is admin-only
	rec := env.do(t, "POST", "/v1/users", userSession.Token,
		CreateUserRequest{Username: "bob", Email: "bob@example.com", Password: "pw"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, "POST", "/v1/users", adminSession.Token,
		CreateUserRequest{Username: "bob", Email: "bob@example.com", Password: "pw"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created domain.PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "bob", created.Username)
	require.Equal(t, domain.RoleUser, created.Role)

	// Duplicate username conflicts
	rec = env.do(t, "POST", "/v1/users", adminSession.Token,
		CreateUserRequest{Username: "bob", Email: "bob2@example.com", Password: "pw"})
	require.Equal(t, http.StatusConflict, rec.Code)

	// List and get are open to any authenticated user
	rec = env.do(t, "GET", "/v1/users", userSession.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []domain.PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 3)

	rec = env.do(t, "GET", "/v1/users/"+created.ID, userSession.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/v1/users/missing", userSession.Token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBootstrapEndpoint(t *testing.T) {
	env := newTestEnv(t)

	// Missing token header
	rec := env.do(t, "POST", "/v1/bootstrap", "",
		BootstrapRequest{AdminUsername: "admin", AdminEmail: "admin@example.com"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest("POST", "/v1/bootstrap",
		bytes.NewReader([]byte(`{"admin_username":"admin","admin_email":"admin@example.com"}`)))
	req.Header.Set("X-Bootstrap-Token", "setup-token")
	recorder := httptest.NewRecorder()
	env.router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var resp BootstrapResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AdminUserID)
	require.NotEmpty(t, resp.AdminPassword, "generated password is returned once")

	// Second bootstrap conflicts
	req = httptest.NewRequest("POST", "/v1/bootstrap",
		bytes.NewReader([]byte(`{"admin_username":"admin2","admin_email":"admin2@example.com"}`)))
	req.Header.Set("X-Bootstrap-Token", "setup-token")
	recorder = httptest.NewRecorder()
	env.router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusConflict, recorder.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)

	rec = env.do(t, "GET", "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
