package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/go-chi/chi/v5/middleware"
)

// TokenVerifier turns a bearer token into a session.
type TokenVerifier interface {
	Verify(raw string) (auth.Session, error)
}

// AuthMiddleware attaches the session of a valid bearer token. Requests without
// a token pass through anonymously; a malformed or invalid token is rejected.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := auth.BearerToken(header)
			if !ok {
				respondError(w, http.StatusUnauthorized, "unauthenticated", "authorization header must be a bearer token")
				return
			}
			sess, err := verifier.Verify(raw)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
		})
	}
}

// RequestIDMiddleware adds a unique request ID to each request. The id is
// stored under chi's key so the access log and handlers see the same value.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(middleware.RequestIDHeader)
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, requestID)
		w.Header().Set(middleware.RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getRequestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}
