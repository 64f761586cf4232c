package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/PaulFidika/otpkit/adapters/ginutil"
	"github.com/PaulFidika/otpkit/otp"
	"github.com/gin-gonic/gin"
)

type verifyCodeRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

type verifyCodeResponse struct {
	Ok        bool       `json:"ok"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// HandleVerificationVerifyPOST checks a code and returns a phone proof token.
func HandleVerificationVerifyPOST(svc *otp.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLClient) {
			ginutil.TooMany(c)
			return
		}
		var req verifyCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		phone := strings.TrimSpace(req.PhoneNumber)
		code := strings.TrimSpace(req.Code)
		if phone == "" || code == "" {
			ginutil.BadRequestMsg(c, "invalid_request", "phone_number and code are required")
			return
		}
		if !ginutil.AllowKey(c, rl, ginutil.RLPhoneVerify, phone) {
			ginutil.TooMany(c)
			return
		}

		proof, err := svc.ConfirmCode(c.Request.Context(), phone, code)
		if err != nil {
			if writeOTPError(c, err) {
				return
			}
			ginutil.ServerErrWithLog(c, "verify_failed", err, "failed to verify code")
			return
		}
		resp := verifyCodeResponse{Ok: true, Token: proof.Token}
		if !proof.ExpiresAt.IsZero() {
			exp := proof.ExpiresAt
			resp.ExpiresAt = &exp
		}
		c.JSON(http.StatusOK, resp)
	}
}
