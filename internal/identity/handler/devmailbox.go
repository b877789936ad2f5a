package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"auth-service/internal/identity/domain"
	"auth-service/internal/mail"
	"auth-service/internal/platform/autherr"
	"auth-service/internal/server/middleware"
)

type mailboxResponse struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// DevMailbox serves GET /dev/mailbox?email= from the in-memory mailbox.
// Mounted only when DEV_MAILBOX is enabled outside production.
func DevMailbox(box *mail.DevMailbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := domain.NormalizeEmail(c.Query("email"))
		if email == "" {
			middleware.AbortWithError(c, nil, autherr.Validation("email is required"))
			return
		}
		msg, ok := box.Latest(email)
		if !ok {
			c.JSON(http.StatusNotFound, middleware.ErrorEnvelope{
				Error: middleware.APIError{Code: "not_found", Message: "no mail for this address"},
			})
			return
		}
		c.JSON(http.StatusOK, mailboxResponse{To: msg.To, Subject: msg.Subject, Body: msg.Body})
	}
}
