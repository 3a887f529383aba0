package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/HammerMeetNail/cotravels/internal/models"
)

type contextKey string

const (
	userContextKey        contextKey = "user"
	accessTokenContextKey contextKey = "access_token"
)

func SetUserInContext(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func GetUserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

// SetAccessTokenInContext keeps the presented access token so logout can
// revoke it.
func SetAccessTokenInContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenContextKey, token)
}

func GetAccessTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenContextKey).(string)
	return token
}

// BearerToken extracts the access token from the Authorization header. A
// bare token without the Bearer scheme is accepted too.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return header
}
