// Package otptest runs an in-process verification backend for tests. It
// wires the real service, gin routes and proof signing over memory stores
// and captures outgoing codes instead of sending them.
//
// Example usage:
//
//	be := otptest.NewBackend()
//	defer be.Close()
//
//	client := httpclient.New(be.URL())
//	_, _ = client.SendVerificationCode(ctx, "0912345678")
//	code := be.LastCode("0912345678")
package otptest

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"time"

	otpgin "github.com/PaulFidika/otpkit/adapters/gin"
	"github.com/PaulFidika/otpkit/core"
	jwtkit "github.com/PaulFidika/otpkit/jwt"
	"github.com/PaulFidika/otpkit/otp"
	memorylimiter "github.com/PaulFidika/otpkit/ratelimit/memory"
	memorystore "github.com/PaulFidika/otpkit/storage/memory"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// ErrSMSDown is returned by CaptureSender while failing.
var ErrSMSDown = errors.New("sms provider unavailable")

// CaptureSender records codes per phone.
type CaptureSender struct {
	mu    sync.Mutex
	codes map[string][]string
	fail  bool
}

func NewCaptureSender() *CaptureSender {
	return &CaptureSender{codes: make(map[string][]string)}
}

func (s *CaptureSender) SendVerificationCode(_ context.Context, phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return ErrSMSDown
	}
	s.codes[phone] = append(s.codes[phone], code)
	return nil
}

// SetFailing makes subsequent sends fail until cleared.
func (s *CaptureSender) SetFailing(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

// LastCode returns the most recent code sent to phone, or "".
func (s *CaptureSender) LastCode(phone string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := s.codes[phone]
	if len(codes) == 0 {
		return ""
	}
	return codes[len(codes)-1]
}

// Sent returns how many codes were sent to phone.
func (s *CaptureSender) Sent(phone string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes[phone])
}

// Backend is a running test server.
type Backend struct {
	server  *httptest.Server
	Service *otp.Service
	Sender  *CaptureSender
	Store   *memorystore.ChallengeStore
	Keys    jwtkit.KeySource
	Proofs  *jwtkit.ProofIssuer
}

// NewBackend starts a backend with the default policy and no rate limits.
func NewBackend() *Backend {
	return NewBackendWithLimiter(nil)
}

// NewBackendWithLimiter starts a backend using rl for the send and verify
// buckets. A nil limiter allows everything.
func NewBackendWithLimiter(rl *memorylimiter.Limiter) *Backend {
	gin.SetMode(gin.TestMode)

	keys, err := jwtkit.NewKeySource("test-key-1", "")
	if err != nil {
		panic("failed to create key source: " + err.Error())
	}
	be := &Backend{
		Sender: NewCaptureSender(),
		Store:  memorystore.NewChallengeStore(),
		Keys:   keys,
		Proofs: &jwtkit.ProofIssuer{Keys: keys, TTL: 15 * time.Minute},
	}
	be.Service = otp.NewService(otp.Config{
		Policy:     core.DefaultConfig(),
		CodeTTL:    5 * time.Minute,
		BcryptCost: bcrypt.MinCost,
	}, be.Store, be.Sender, otp.WithProofIssuer(be.Proofs))

	api := otpgin.NewService(be.Service, keys)
	if rl != nil {
		api.WithRateLimiter(rl)
	}
	be.server = httptest.NewServer(api.Handler())
	be.Proofs.Issuer = be.server.URL
	return be
}

// URL is the base URL and the proof issuer.
func (b *Backend) URL() string { return b.server.URL }

// LastCode returns the latest code sent to phone.
func (b *Backend) LastCode(phone string) string { return b.Sender.LastCode(phone) }

func (b *Backend) Close() {
	if b.server != nil {
		b.server.Close()
	}
}
