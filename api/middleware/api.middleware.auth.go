package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Nerzal/gocloak/v13"
	"github.com/itsatony/flightwatch/internal/config"
	"github.com/itsatony/flightwatch/internal/errors"
	nuts "github.com/vaudience/go-nuts"
)

// TokenClient is the part of the Keycloak client used for authentication
type TokenClient interface {
	RetrospectToken(ctx context.Context, accessToken, clientID, clientSecret, realm string) (*gocloak.IntroSpectTokenResult, error)
	GetUserInfo(ctx context.Context, accessToken, realm string) (*gocloak.UserInfo, error)
}

type KeycloakMiddleware struct {
	client TokenClient
	config config.KeycloakConfig
}

type UserContext struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type contextKey string

const userKey contextKey = "user"

func NewKeycloakMiddleware(cfg config.KeycloakConfig) *KeycloakMiddleware {
	return NewKeycloakMiddlewareWithClient(cfg, gocloak.NewClient(cfg.URL))
}

func NewKeycloakMiddlewareWithClient(cfg config.KeycloakConfig, client TokenClient) *KeycloakMiddleware {
	return &KeycloakMiddleware{client: client, config: cfg}
}

// Authenticate validates the bearer token and adds the user to the request context
func (k *KeycloakMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := nuts.NID("req", 12)
		token := extractToken(r)
		if token == "" {
			handleError(w, errors.NewAuthError("no token provided", nil).WithRequestID(requestID))
			return
		}

		result, err := k.client.RetrospectToken(r.Context(), token, k.config.ClientID, k.config.ClientSecret, k.config.Realm)
		if err != nil || result == nil || result.Active == nil || !*result.Active {
			handleError(w, errors.NewAuthError("invalid token", err).WithRequestID(requestID))
			return
		}

		info, err := k.client.GetUserInfo(r.Context(), token, k.config.Realm)
		if err != nil || info == nil {
			handleError(w, errors.NewAuthError("failed to get user info", err).WithRequestID(requestID))
			return
		}

		user := &UserContext{
			ID:       deref(info.Sub),
			Username: deref(info.PreferredUsername),
			Email:    deref(info.Email),
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the authenticated user, if any
func UserFromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userKey).(*UserContext)
	return user, ok
}

// PassThrough is used for protected routes when no Keycloak server is configured
func PassThrough(next http.Handler) http.Handler {
	return next
}

func extractToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func handleError(w http.ResponseWriter, err *errors.APIError) {
	nuts.L.Warnf("[Auth] %s", err.Error())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
}
