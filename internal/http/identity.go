package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/artemvolkov/auction-house/internal/domain"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityMiddleware verifies the bearer token and stores the resulting
// (subject, role) pair in the request context. Routes that mutate state
// require it; reads stay public.
func IdentityMiddleware(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			sub, err := claims.GetSubject()
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			subjectID, err := uuid.Parse(sub)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			role, _ := claims["role"].(string)

			ident := domain.Identity{SubjectID: subjectID, Role: role}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, ident)))
		})
	}
}

func identityFrom(r *http.Request) (domain.Identity, bool) {
	ident, ok := r.Context().Value(identityKey).(domain.Identity)
	return ident, ok
}
