package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/keygate-dev/keygate/internal/api"
	mw "github.com/keygate-dev/keygate/internal/middleware"
	"github.com/keygate-dev/keygate/internal/utils"
)

const refreshTokenCookie = "refreshToken"

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body api.RegisterRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteError(w, err)
		return
	}

	user, err := h.auth.Register(body.Name, body.Email, body.Password, body.PasswordConfirm)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, api.RegisterResponse{
		Success: true,
		Message: "User registered. Please check your email to verify your account.",
		User:    api.NewUser(user),
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body api.LoginRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteError(w, err)
		return
	}

	user, pair, err := h.auth.Login(body.Email, body.Password)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.Refresh)
	utils.WriteJSON(w, http.StatusOK, api.LoginResponse{
		Success:     true,
		Message:     "Logged in successfully",
		AccessToken: pair.Access,
		User:        api.NewUser(user),
	})
}

// Logout clears the refresh token cookie. Idempotent.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearRefreshCookie(w)
	utils.WriteJSON(w, http.StatusOK, api.MessageResponse{Success: true, Message: "Logged out successfully"})
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil {
		utils.WriteJSON(w, http.StatusUnauthorized, api.ErrorResponse{Success: false, Message: "No refresh token provided"})
		return
	}

	user, pair, err := h.auth.Refresh(cookie.Value)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.Refresh)
	utils.WriteJSON(w, http.StatusOK, api.RefreshTokenResponse{
		Success:     true,
		AccessToken: pair.Access,
		User:        api.NewUser(user),
	})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	uid, ok := mw.GetUserIdFromContext(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, api.ErrorResponse{Success: false, Message: "No token provided"})
		return
	}

	user, err := h.auth.Profile(uid)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, api.ProfileResponse{Success: true, User: api.NewUser(user)})
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := h.auth.VerifyEmail(token); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, api.MessageResponse{Success: true, Message: "Email verified successfully. You can now login."})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body api.ForgotPasswordRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.auth.ForgotPassword(body.Email); err != nil {
		utils.WriteError(w, err)
		return
	}

	// Identical response whether or not the email is registered.
	utils.WriteJSON(w, http.StatusOK, api.MessageResponse{
		Success: true,
		Message: "If an account exists, a password reset link has been sent to your email.",
	})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var body api.ResetPasswordRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.auth.ResetPassword(token, body.Password, body.PasswordConfirm); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, api.MessageResponse{
		Success: true,
		Message: "Password reset successfully. You can now login with your new password.",
	})
}

// The refresh token travels only via this cookie. Scoped to the auth
// routes so it is never sent alongside ordinary API requests.
func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/api/auth",
		Name:     refreshTokenCookie,
		Value:    token,
		MaxAge:   int(h.cfg.Public.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Public.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/api/auth",
		Name:     refreshTokenCookie,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Public.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
