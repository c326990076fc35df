package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/recallion/recallion/pkg/log"
)

type ctxKey int

const ownerKey ctxKey = iota

// authMiddleware resolves a bearer token to an owner id via the static token
// map. Comparison is constant-time per token.
func authMiddleware(tokens map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || presented == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			for token, owner := range tokens {
				if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1 {
					ctx := context.WithValue(r.Context(), ownerKey, owner)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			log.FromCtx(r.Context()).Warn().Str("remote_addr", r.RemoteAddr).Msg("rejected unknown bearer token")
			writeError(w, http.StatusUnauthorized, "invalid bearer token")
		})
	}
}

func ownerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}
