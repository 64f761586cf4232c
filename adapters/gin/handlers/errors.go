package handlers

import (
	"errors"
	"net/http"

	"github.com/PaulFidika/otpkit/core"
	otplang "github.com/PaulFidika/otpkit/lang"
	"github.com/PaulFidika/otpkit/otp"
	"github.com/gin-gonic/gin"
)

// writeOTPError maps service errors to status, code and localized message.
// It reports false for errors that are not client errors.
func writeOTPError(c *gin.Context, err error) bool {
	var (
		status = http.StatusBadRequest
		code   string
		kind   *core.Error
	)
	switch {
	case errors.Is(err, otp.ErrInvalidPhone):
		code, kind = "invalid_phone_number", core.ErrInvalidPhoneFormat
	case errors.Is(err, otp.ErrInvalidCode):
		code, kind = "invalid_code", core.ErrInvalidCode
	case errors.Is(err, otp.ErrCodeExpired):
		code, kind = "code_expired", core.ErrInvalidCode
	case errors.Is(err, otp.ErrCodeNotFound):
		code, kind = "invalid_or_expired_code", core.ErrInvalidCode
	case errors.Is(err, otp.ErrTooManyAttempts):
		status, code, kind = http.StatusTooManyRequests, "too_many_attempts", core.ErrTooManyAttempts
	default:
		return false
	}
	language, _ := otplang.LanguageFromContext(c.Request.Context())
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": otplang.Message(language, kind)})
	return true
}
