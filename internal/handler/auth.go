package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Yoseph1994/adventurehub/internal/config"
	"github.com/Yoseph1994/adventurehub/internal/middleware"
	"github.com/Yoseph1994/adventurehub/internal/service"
)

// AuthHandler serves signup, login, password and profile endpoints.
type AuthHandler struct {
	Cfg  config.Config
	Auth *service.AuthService
}

// NewAuthHandler returns the signup, login and password handlers.
// cfg decides cookie flags.
func NewAuthHandler(cfg config.Config, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Auth: auth}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotReq struct {
	Email string `json:"email"`
}

func (h *AuthHandler) setSessionCookie(c echo.Context, token string, exp time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.Cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

// sendSession sets the jwt cookie and returns the token, the role and the
// sanitized user.
func (h *AuthHandler) sendSession(c echo.Context, code int, s service.Session) error {
	h.setSessionCookie(c, s.Token.Token, time.Now().Add(h.Cfg.CookieTTL()))
	return c.JSON(code, echo.Map{
		"status": "success",
		"token":  s.Token.Token,
		"role":   s.User.Role,
		"data":   echo.Map{"user": s.User},
	})
}

// Signup creates an unverified account and mails the verification link.
func (h *AuthHandler) Signup(c echo.Context) error {
	var in service.SignupInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Auth.Signup(ctx, in); err != nil {
		return err
	}
	return message(c, http.StatusCreated, "Check Email Inbox to verify")
}

// VerifyEmail consumes a verification token.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.VerifyEmail(ctx, c.Param("token")); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Email verified successfully")
}

// Login checks credentials and starts a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Auth.Login(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, s)
}

// Logout clears the session cookie.  The token itself stays valid until
// it expires.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.clearSessionCookie(c)
	return message(c, http.StatusOK, "Logged out successfully")
}

// ForgotPassword mails a reset link.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ForgotPassword(ctx, strings.TrimSpace(req.Email)); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Token Sent Via Email")
}

// ResetPassword consumes a reset token and starts a new session.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var in service.PasswordInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Auth.ResetPassword(ctx, c.Param("token"), in)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, s)
}

// UpdatePassword changes the caller's password after re-checking the
// current one.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	var in service.UpdatePasswordInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Auth.UpdatePassword(ctx, u.ID, in)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, s)
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	me, err := h.Auth.Me(ctx, u.ID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"user": me})
}

// UpdateMe changes the caller's name, email or photo.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	var in service.UpdateMeInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	updated, err := h.Auth.UpdateMe(ctx, u.ID, in)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"user": updated})
}

// DeleteMe deactivates the caller's account and ends the session.
func (h *AuthHandler) DeleteMe(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.Deactivate(ctx, u.ID); err != nil {
		return err
	}
	h.clearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// PermanentDelete removes the caller's account and ends the session.
func (h *AuthHandler) PermanentDelete(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.DeleteAccount(ctx, u.ID); err != nil {
		return err
	}
	h.clearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}
