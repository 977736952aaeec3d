package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/vmaksimov/homesense/internal/common"
	"github.com/vmaksimov/homesense/internal/server/auth"
)

type ctxKey string

const principalKey ctxKey = "principal"

// principalFrom returns the verified principal the auth middleware put
// into the request context. Handlers behind the middleware can rely on
// it being present.
func principalFrom(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalKey).(*auth.Principal)
	return p
}

// withAuth verifies the bearer token and stores the principal in the
// request context. The principal's subject is the tenant key for every
// downstream read and write.
func (s *HTTPServer) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, r, common.ErrorUnauthorized)
			return
		}

		principal, err := auth.VerifyToken(token, s.jwtSecret)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withRolePolicy denies mutations to read-only principals. Reads pass
// through untouched; tenant scoping already confines what they can see.
func (s *HTTPServer) withRolePolicy(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		if r.Method != http.MethodGet {
			if p := principalFrom(r.Context()); p != nil && p.ReadOnly() {
				s.writeError(w, r, common.ErrorForbidden)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// withDeadline bounds every request by the configured timeout so a slow
// store cannot pin connections indefinitely.
func (s *HTTPServer) withDeadline(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
