// Package ginutil holds the response and rate limit helpers shared by the
// gin handlers.
package ginutil

import (
	"net/http"
	"strings"

	"github.com/PaulFidika/otpkit/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Rate limit buckets used by the handlers.
const (
	RLPhoneSend   = ratelimit.BucketPhoneSend
	RLPhoneVerify = ratelimit.BucketPhoneVerify
	RLClient      = ratelimit.BucketDefault
)

// RateLimiter is satisfied by the memory and redis limiters.
type RateLimiter interface {
	AllowNamed(bucket, key string) (bool, error)
}

// Logger receives handler error logs. Defaults to the logrus standard logger.
var Logger logrus.FieldLogger = logrus.StandardLogger()

// AllowNamed checks bucket keyed by client IP. A nil limiter allows.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	return AllowKey(c, rl, bucket, c.ClientIP())
}

// AllowKey checks bucket for an explicit key such as a phone number.
// Limiter errors fail open and are logged.
func AllowKey(c *gin.Context, rl RateLimiter, bucket, key string) bool {
	if rl == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = c.ClientIP()
	}
	ok, err := rl.AllowNamed(bucket, key)
	if err != nil {
		Logger.WithError(err).WithField("bucket", bucket).Warn("rate limiter unavailable")
		return true
	}
	return ok
}

func BadRequest(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": code})
}

// BadRequestMsg adds a human readable message next to the error code.
func BadRequestMsg(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": code, "message": message})
}

func TooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

func ServerErr(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": code})
}

// ServerErrWithLog logs err with msg and responds 500 with code.
func ServerErrWithLog(c *gin.Context, code string, err error, msg string) {
	Logger.WithError(err).WithFields(logrus.Fields{
		"path":   c.FullPath(),
		"method": c.Request.Method,
	}).Error(msg)
	ServerErr(c, code)
}
