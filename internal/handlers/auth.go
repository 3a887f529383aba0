package handlers

import (
	"net/http"
	"time"

	"github.com/HammerMeetNail/cotravels/internal/logging"
	"github.com/HammerMeetNail/cotravels/internal/models"
	"github.com/HammerMeetNail/cotravels/internal/services"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/auth"
)

type AuthHandler struct {
	authService services.AuthServiceInterface
	secure      bool // Use secure cookies (HTTPS only)
	refreshTTL  time.Duration
}

func NewAuthHandler(authService services.AuthServiceInterface, secure bool, refreshTTL time.Duration) *AuthHandler {
	if refreshTTL <= 0 {
		refreshTTL = 24 * time.Hour
	}
	return &AuthHandler{
		authService: authService,
		secure:      secure,
		refreshTTL:  refreshTTL,
	}
}

type SigninRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type SigninResponse struct {
	models.TokenPair
	User *models.User `json:"user"`
}

type RefreshResponse struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	TokenType       string    `json:"token_type"`
}

type UserResponse struct {
	User *models.User `json:"user"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupParams
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, "signup", err)
		return
	}

	logging.Info("User signed up", logging.Fields{"user_id": user.ID.String()})
	writeJSON(w, http.StatusCreated, UserResponse{User: user})
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, user, err := h.authService.Signin(r.Context(), req.Identifier, req.Password)
	switch services.KindOf(err) {
	case "":
	case services.KindNotFound, services.KindUnauthorized:
		// Unknown identifier and wrong password look the same to the caller.
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	default:
		writeServiceError(w, r, "signin", err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, SigninResponse{TokenPair: *pair, User: user})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var refreshToken string
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		refreshToken = cookie.Value
	}

	token, expiry, err := h.authService.Refresh(r.Context(), BearerToken(r), refreshToken)
	if err != nil {
		if services.KindOf(err) == services.KindUnauthorized {
			// Parser detail stays in the log.
			logging.Warn("Token refresh rejected", logging.Fields{"reason": err.Error()})
			h.clearRefreshCookie(w)
			writeError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		writeServiceError(w, r, "refresh", err)
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{
		AccessToken:     token,
		AccessExpiresAt: expiry,
		TokenType:       "bearer",
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	mode := models.LogoutSingle
	if r.URL.Query().Get("all") == "true" {
		mode = models.LogoutAll
	}

	var refreshToken string
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		refreshToken = cookie.Value
	}

	err := h.authService.Logout(r.Context(), user.ID, GetAccessTokenFromContext(r.Context()), refreshToken, mode)
	h.clearRefreshCookie(w)
	if err != nil {
		writeServiceError(w, r, "logout", err)
		return
	}

	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.ChangePasswordParams
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.ChangePassword(r.Context(), user.ID, req); err != nil {
		writeServiceError(w, r, "change_password", err)
		return
	}

	writeMessage(w, http.StatusOK, "Password changed successfully")
}

func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.authService.DeleteAccount(r.Context(), user.ID); err != nil {
		writeServiceError(w, r, "delete_account", err)
		return
	}

	logging.Info("Account deleted", logging.Fields{"user_id": user.ID.String()})
	h.clearRefreshCookie(w)
	writeMessage(w, http.StatusOK, "Account deleted successfully")
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(h.refreshTTL / time.Second),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
