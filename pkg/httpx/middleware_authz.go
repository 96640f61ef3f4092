package httpx

import "net/http"

// RequireRole the caller's verified role claim must be one of the
// provided roles. Runs after AuthnMiddleware; the role comes from the
// token's own signed claims, never from request input.
func RequireRole(roles ...string) Middleware {
	want := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		want[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := want[RoleFromCtx(r.Context())]; !ok {
				writeBearerRoleError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeBearerRoleError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("insufficient_role"))
}
