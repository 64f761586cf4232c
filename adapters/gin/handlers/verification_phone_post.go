package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/PaulFidika/otpkit/adapters/ginutil"
	"github.com/PaulFidika/otpkit/otp"
	"github.com/gin-gonic/gin"
)

type sendCodeRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type sendCodeResponse struct {
	Ok                 bool      `json:"ok"`
	ChallengeID        string    `json:"challenge_id"`
	ExpiresAt          time.Time `json:"expires_at"`
	ResendAfterSeconds int       `json:"resend_after_seconds"`
}

// HandleVerificationPhonePOST issues a new code for the phone number in the body.
func HandleVerificationPhonePOST(svc *otp.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLClient) {
			ginutil.TooMany(c)
			return
		}
		var req sendCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		phone := strings.TrimSpace(req.PhoneNumber)
		if phone == "" {
			ginutil.BadRequestMsg(c, "invalid_request", "phone_number is required")
			return
		}
		if !ginutil.AllowKey(c, rl, ginutil.RLPhoneSend, phone) {
			ginutil.TooMany(c)
			return
		}

		ch, err := svc.RequestCode(c.Request.Context(), phone)
		if err != nil {
			if writeOTPError(c, err) {
				return
			}
			ginutil.ServerErrWithLog(c, "send_code_failed", err, "failed to send verification code")
			return
		}
		c.JSON(http.StatusOK, sendCodeResponse{
			Ok:                 true,
			ChallengeID:        ch.ID,
			ExpiresAt:          ch.ExpiresAt,
			ResendAfterSeconds: svc.Policy().CooldownSeconds(),
		})
	}
}
