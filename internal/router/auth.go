package router

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/paulexconde/surveyflow/internal/config"
	"github.com/paulexconde/surveyflow/internal/handlers"
	"go.uber.org/zap"
)

var errNoToken = errors.New("authorization header is missing")

// authorID parses the bearer token on r and returns the author id held in
// its subject.
func authorID(conf config.AuthConfig, r *http.Request) (int, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return 0, errNoToken
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(header, bearerPrefix) {
		return 0, errors.New("bearer token is required")
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if tokenString == "" {
		return 0, errors.New("access token is empty")
	}

	if conf.JWTSecret == "" {
		return 0, errors.New("authentication is not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithLeeway(30 * time.Second),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if conf.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(conf.JWTIssuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return []byte(conf.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return 0, errors.New("access token is invalid")
	}

	id, err := strconv.Atoi(claims.Subject)
	if err != nil || id <= 0 {
		return 0, errors.New("access token subject is not an author id")
	}
	return id, nil
}

// AuthRequired rejects requests without a valid author token.
func AuthRequired(conf config.AuthConfig, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authorID(conf, r)
			if err != nil {
				handlers.WriteJSON(log, w, http.StatusUnauthorized, handlers.Envelope{Error: err.Error()})
				return
			}

			next.ServeHTTP(w, r.WithContext(handlers.ContextWithCreator(r.Context(), id)))
		})
	}
}

// OptionalAuth identifies the caller when a valid token is sent and lets
// anonymous requests through. A token that is present but invalid is rejected.
func OptionalAuth(conf config.AuthConfig, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authorID(conf, r)
			switch {
			case errors.Is(err, errNoToken):
				next.ServeHTTP(w, r)
			case err != nil:
				handlers.WriteJSON(log, w, http.StatusUnauthorized, handlers.Envelope{Error: err.Error()})
			default:
				next.ServeHTTP(w, r.WithContext(handlers.ContextWithCreator(r.Context(), id)))
			}
		})
	}
}
