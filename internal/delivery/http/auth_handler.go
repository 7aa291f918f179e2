package http

import (
	"encoding/json"
	"net/http"
	"time"

	"careercompass/internal/entity"
	"careercompass/internal/usecase"

	"go.uber.org/zap"
)

type AuthHandler struct {
	authUc usecase.AuthUsecase
	log    *zap.Logger
}

func NewAuthHandler(authUc usecase.AuthUsecase, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authUc: authUc,
		log:    log,
	}
}

// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req entity.RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "invalid request body"})
		return
	}

	if req.Email == "" || req.Password == "" || req.Username == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "email, username, password, and name are required"})
		return
	}

	if len(req.Password) < 6 {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "password must be at least 6 characters"})
		return
	}

	if len(req.Username) < 3 {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "username must be at least 3 characters"})
		return
	}

	authResponse, err := h.authUc.Register(r.Context(), req)
	if err != nil {
		h.log.Warn("register failed", zap.Error(err))

		statusCode := http.StatusInternalServerError
		message := "internal server error"

		switch err {
		case usecase.ErrEmailAlreadyTaken:
			statusCode = http.StatusConflict
			message = "email already taken"
		case usecase.ErrUsernameAlreadyTaken:
			statusCode = http.StatusConflict
			message = "username already taken"
		case usecase.ErrInvalidRole:
			statusCode = http.StatusBadRequest
			message = "role must be mentee or mentor"
		}

		writeJSON(w, statusCode, Response{Success: false, Message: message})
		return
	}

	h.setRefreshTokenCookie(w, authResponse.RefreshToken)
	authResponse.RefreshToken = ""

	writeData(w, http.StatusCreated, "registration successful", authResponse)
}

// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req entity.LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "invalid request body"})
		return
	}

	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "email and password are required"})
		return
	}

	authResponse, err := h.authUc.Login(r.Context(), req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		message := "internal server error"

		if err == usecase.ErrInvalidCredentials {
			statusCode = http.StatusUnauthorized
			message = "invalid email or password"
		} else {
			h.log.Error("login failed", zap.Error(err))
		}

		writeJSON(w, statusCode, Response{Success: false, Message: message})
		return
	}

	h.setRefreshTokenCookie(w, authResponse.RefreshToken)
	authResponse.RefreshToken = ""

	writeData(w, http.StatusOK, "login successful", authResponse)
}

// POST /auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshToken := refreshTokenFrom(r)
	if refreshToken == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "refresh token is required"})
		return
	}

	authResponse, err := h.authUc.RefreshToken(r.Context(), refreshToken)
	if err != nil {
		message := "invalid or expired refresh token"

		switch err {
		case usecase.ErrInvalidRefreshToken:
			message = "invalid refresh token"
		case usecase.ErrExpiredRefreshToken:
			message = "refresh token has expired"
		case usecase.ErrRevokedRefreshToken:
			message = "refresh token has been revoked"
		}

		h.clearRefreshTokenCookie(w)
		writeJSON(w, http.StatusUnauthorized, Response{Success: false, Message: message})
		return
	}

	h.setRefreshTokenCookie(w, authResponse.RefreshToken)
	authResponse.RefreshToken = ""

	writeData(w, http.StatusOK, "token refreshed successfully", authResponse)
}

// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshToken := refreshTokenFrom(r)
	if refreshToken != "" {
		if err := h.authUc.Logout(r.Context(), refreshToken); err != nil {
			h.log.Warn("logout failed", zap.Error(err))
		}
	}

	h.clearRefreshTokenCookie(w)
	writeData(w, http.StatusOK, "logout successful", nil)
}

// POST /auth/logout-all
func (h *AuthHandler) LogoutAllDevices(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFrom(r.Context())
	if principal == nil {
		writeJSON(w, http.StatusUnauthorized, Response{Success: false, Message: "unauthorized"})
		return
	}

	if err := h.authUc.LogoutAllDevices(r.Context(), principal.UserId); err != nil {
		h.log.Error("logout all devices failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Message: "internal server error"})
		return
	}

	h.clearRefreshTokenCookie(w)
	writeData(w, http.StatusOK, "logged out from all devices successfully", nil)
}

// refreshTokenFrom reads the refresh token from the cookie first, falling
// back to the request body.
func refreshTokenFrom(r *http.Request) string {
	if cookie, err := r.Cookie("refresh_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var req entity.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshTokenCookie(w http.ResponseWriter, token string) {
	cookie := &http.Cookie{
		Name:     "refresh_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,                 // Cannot be accessed by JavaScript
		Secure:   false,                // Set to true in production with HTTPS
		SameSite: http.SameSiteLaxMode, // CSRF protection
		MaxAge:   30 * 24 * 60 * 60,    // 30 days
	}
	http.SetCookie(w, cookie)
}

func (h *AuthHandler) clearRefreshTokenCookie(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1, // Delete cookie
		Expires:  time.Unix(0, 0),
	}
	http.SetCookie(w, cookie)
}
