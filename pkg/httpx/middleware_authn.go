package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/yellowgoat/authsvc/pkg/jwtx"
	"github.com/yellowgoat/authsvc/pkg/slogx"
)

// Authorizer validates a raw bearer token for protected-resource use
// and returns its claims. Implementations must reject any token that is
// not a session-purpose token.
type Authorizer interface {
	Authorize(rawToken string) (jwtx.Claims, error)
}

// AuthnMiddleware extracts and verifies the bearer token, injecting the
// identity into the request context. onReject, when non-nil, is called
// with the rejection error (metrics hook).
func AuthnMiddleware(a Authorizer, onReject func(err error)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := a.Authorize(raw)
			if err != nil {
				if onReject != nil {
					onReject(err)
				}
				log.Warn("bearer token rejected", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyUsername, c.Username)
	ctx = context.WithValue(ctx, CtxKeyRole, c.Role)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
