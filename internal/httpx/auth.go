package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/ariefcatur/koperasi-orders.git/internal/auth"
)

type ctxKey int

const identityKey ctxKey = iota

// RequireAuth memverifikasi bearer token dan menaruh Identity di context.
func RequireAuth(v auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Verify(r.Context(), bearerToken(r))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func identityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

// mustAdmin balas 403 dan return false kalau caller bukan admin.
func mustAdmin(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return auth.Identity{}, false
	}
	if !id.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin access required")
		return auth.Identity{}, false
	}
	return id, true
}
