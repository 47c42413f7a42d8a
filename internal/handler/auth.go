package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"AlsitoQC/internal/auth"
	"AlsitoQC/internal/session"
	"AlsitoQC/pkg/middleware"
	"AlsitoQC/pkg/response"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request", gin.H{"error": err.Error()})
		return
	}
	res, err := h.deps.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		msgs := h.deps.I18n.For(middleware.Lang(c), "en")
		response.Error(c, statusFor(err), err, gin.H{"display": auth.DisplayMessage(msgs, err)})
		return
	}
	response.Success(c, "login success", gin.H{"profile": res.Profile, "route": "home"})
}

// handleSession tells the client where to start: home with a stored
// session, login otherwise.
func (h *Handlers) handleSession(c *gin.Context) {
	sess, err := h.deps.Sessions.Load(c.Request.Context())
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			h.logger.Warn("load session failed", zap.Error(err))
		}
		response.Success(c, "ok", gin.H{"route": "login"})
		return
	}
	response.Success(c, "ok", gin.H{"route": "home", "profile": sess.Profile})
}

func (h *Handlers) handleLogout(c *gin.Context) {
	if err := h.deps.Sessions.Clear(c.Request.Context()); err != nil {
		h.logger.Error("clear session failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, err, nil)
		return
	}
	response.Success(c, "logged out", gin.H{"route": "login"})
}
