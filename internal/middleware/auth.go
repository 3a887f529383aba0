package middleware

import (
	"errors"
	"net/http"

	"github.com/HammerMeetNail/cotravels/internal/handlers"
	"github.com/HammerMeetNail/cotravels/internal/logging"
	"github.com/HammerMeetNail/cotravels/internal/services"
)

const invalidSessionBody = `{"errors":["Session expired or invalid, please login again"]}`

type AuthMiddleware struct {
	authService services.AuthServiceInterface
	userService services.UserServiceInterface
}

func NewAuthMiddleware(authService services.AuthServiceInterface, userService services.UserServiceInterface) *AuthMiddleware {
	return &AuthMiddleware{authService: authService, userService: userService}
}

// RequireAuth authorizes the bearer token and loads the caller into the
// request context. Every rejection looks the same to the client.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := handlers.BearerToken(r)

		claims, err := m.authService.Authorize(r.Context(), token)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		user, err := m.userService.GetByID(r.Context(), claims.UserID)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		ctx := handlers.SetUserInContext(r.Context(), user)
		ctx = handlers.SetAccessTokenInContext(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	switch services.KindOf(err) {
	case services.KindUnauthorized, services.KindNotFound:
		logging.Warn("Request not authorized", logging.Fields{
			"reason": rejectReason(err),
			"path":   r.URL.Path,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(invalidSessionBody))
	default:
		logging.Error("Authorization check failed", logging.Fields{
			"error": err.Error(),
			"path":  r.URL.Path,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Internal server error"}`))
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, services.ErrMissingToken):
		return "missing"
	case errors.Is(err, services.ErrTokenBlacklisted):
		return "blacklisted"
	case errors.Is(err, services.ErrTokenExpired):
		return "expired"
	case errors.Is(err, services.ErrUserNotFound):
		return "user_gone"
	default:
		return "invalid"
	}
}
