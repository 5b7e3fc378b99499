package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nexto/mailer"
)

const (
	resetTokenTTL   = time.Hour
	mailSendTimeout = 15 * time.Second
)

type AuthHandler struct {
	mailer    mailer.Mailer
	publicURL string
	log       *slog.Logger
	now       func() time.Time
}

func NewAuthHandler(m mailer.Mailer, publicURL string, log *slog.Logger) *AuthHandler {
	return &AuthHandler{mailer: m, publicURL: strings.TrimRight(publicURL, "/"), log: log, now: time.Now}
}

func (h *AuthHandler) Register(r gin.IRouter) {
	r.POST("/auth/forgot-password", h.ForgotPassword)
}

type forgotPasswordIn struct {
	Email string `json:"email"`
}

// POST /auth/forgot-password - Send password reset instructions
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var in forgotPasswordIn
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	email := strings.TrimSpace(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide a valid email address"})
		return
	}

	msg := mailer.PasswordReset{
		To:        email,
		ResetURL:  h.publicURL + "/reset-password?token=" + url.QueryEscape(uuid.NewString()),
		ExpiresAt: h.now().Add(resetTokenTTL),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
		defer cancel()
		if err := h.mailer.SendPasswordReset(ctx, msg); err != nil {
			h.log.Error("failed to send password reset email", "to", msg.To, "error", err)
		}
	}()

	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset instructions have been sent to your email.",
		"success": true,
	})
}
