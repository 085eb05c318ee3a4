package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type contextKey string

const UserIDKey contextKey = "userID"

var (
	ErrMissingToken   = errors.New("missing token")
	ErrMalformedAuthz = errors.New("invalid authorization format")
)

// TokenSource pulls the raw token out of a request.
type TokenSource func(r *http.Request) (string, error)

// BearerToken reads an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrMalformedAuthz
	}
	return parts[1], nil
}

// QueryToken reads the token query parameter. Browsers cannot set headers
// on a WebSocket upgrade, so the collab endpoint authenticates this way.
func QueryToken(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// Authenticate returns the user the token found by src was issued to.
func (s *Service) Authenticate(r *http.Request, src TokenSource) (string, error) {
	token, err := src(r)
	if err != nil {
		return "", err
	}
	return s.ValidateToken(token)
}

func (s *Service) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.Authenticate(r, BearerToken)
		if err != nil {
			WriteError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}
