// Package otpgin mounts the verification API on a gin router.
package otpgin

import (
	"net/http"

	"github.com/PaulFidika/otpkit/adapters/gin/handlers"
	"github.com/PaulFidika/otpkit/adapters/ginutil"
	otphttp "github.com/PaulFidika/otpkit/adapters/http"
	jwtkit "github.com/PaulFidika/otpkit/jwt"
	"github.com/PaulFidika/otpkit/otp"
	"github.com/gin-gonic/gin"
)

const (
	PathSendCode   = "/api/verification/phone"
	PathVerifyCode = "/api/verification/verify"
	PathJWKS       = "/.well-known/jwks.json"
)

// Service bundles the dependencies of the verification routes.
type Service struct {
	svc  *otp.Service
	keys jwtkit.KeySource
	rl   ginutil.RateLimiter
	lang *LanguageConfig
}

func NewService(svc *otp.Service, keys jwtkit.KeySource) *Service {
	return &Service{svc: svc, keys: keys}
}

func (s *Service) WithRateLimiter(rl ginutil.RateLimiter) *Service {
	s.rl = rl
	return s
}

func (s *Service) WithLanguageConfig(cfg *LanguageConfig) *Service {
	s.lang = cfg
	return s
}

// GinRegisterAPI mounts the send, verify and JWKS routes on r.
func (s *Service) GinRegisterAPI(r gin.IRouter) {
	g := r.Group("", LanguageMiddleware(s.lang))
	g.POST(PathSendCode, handlers.HandleVerificationPhonePOST(s.svc, s.rl))
	g.POST(PathVerifyCode, handlers.HandleVerificationVerifyPOST(s.svc, s.rl))
	if s.keys != nil {
		g.GET(PathJWKS, gin.WrapH(otphttp.JWKSHandler(s.keys)))
	}
}

// Handler returns a standalone engine serving the API.
func (s *Service) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	s.GinRegisterAPI(r)
	return r
}
