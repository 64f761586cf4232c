// Package otp issues and checks phone verification codes on the backend
// side of the transport.
package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PaulFidika/otpkit/core"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidPhone    = errors.New("invalid_phone_number")
	ErrCodeNotFound    = errors.New("invalid_or_expired_code")
	ErrCodeExpired     = errors.New("code_expired")
	ErrInvalidCode     = errors.New("invalid_code")
	ErrTooManyAttempts = errors.New("too_many_attempts")
)

// Challenge is a pending code for one phone number. Only the latest
// challenge per phone is kept.
type Challenge struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	CodeHash  string    `json:"code_hash"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ChallengeStore persists challenges keyed by phone number.
// IncrAttempts bumps the attempt counter of the pending challenge and
// returns it as stored after the increment; concurrent callers each see a
// distinct count.
type ChallengeStore interface {
	Put(ctx context.Context, ch Challenge) error
	Get(ctx context.Context, phone string) (Challenge, bool, error)
	IncrAttempts(ctx context.Context, phone string) (Challenge, bool, error)
	Del(ctx context.Context, phone string) error
}

// Sweeper is implemented by stores that need expired entries purged.
type Sweeper interface {
	Sweep(now time.Time) int
}

// ProofIssuer mints a token proving phone ownership.
type ProofIssuer interface {
	IssuePhoneProof(ctx context.Context, phone string) (string, time.Time, error)
}

// VerifiedRecorder persists verified phone numbers.
type VerifiedRecorder interface {
	MarkPhoneVerified(ctx context.Context, phone string, at time.Time) error
}

// Proof is the result of a successful confirmation.
type Proof struct {
	Token     string
	ExpiresAt time.Time
}

type Config struct {
	Policy     core.Config
	CodeTTL    time.Duration
	BcryptCost int
}

type Service struct {
	cfg      Config
	store    ChallengeStore
	sms      SMSSender
	proofs   ProofIssuer
	recorder VerifiedRecorder
	log      logrus.FieldLogger
	now      func() time.Time
	genCode  func(n int) (string, error)
}

type ServiceOption func(*Service)

func WithProofIssuer(p ProofIssuer) ServiceOption { return func(s *Service) { s.proofs = p } }

func WithRecorder(r VerifiedRecorder) ServiceOption { return func(s *Service) { s.recorder = r } }

func WithLogger(l logrus.FieldLogger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCodeGenerator overrides random code generation (tests).
func WithCodeGenerator(fn func(n int) (string, error)) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.genCode = fn
		}
	}
}

func NewService(cfg Config, store ChallengeStore, sms SMSSender, opts ...ServiceOption) *Service {
	cfg.Policy = cfg.Policy.Defaulted()
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 5 * time.Minute
	}
	if sms == nil {
		sms = LogSender{}
	}
	s := &Service{
		cfg:     cfg,
		store:   store,
		sms:     sms,
		log:     logrus.StandardLogger(),
		now:     time.Now,
		genCode: GenerateCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Policy() core.Config { return s.cfg.Policy }

// RequestCode creates a fresh challenge for phone, replacing any previous
// one, and sends the code.
func (s *Service) RequestCode(ctx context.Context, phone string) (Challenge, error) {
	phone = strings.TrimSpace(phone)
	if !s.cfg.Policy.ValidPhone(phone) {
		return Challenge{}, ErrInvalidPhone
	}
	code, err := s.genCode(s.cfg.Policy.CodeLength)
	if err != nil {
		return Challenge{}, fmt.Errorf("otp: generate code: %w", err)
	}
	hash, err := HashCode(code, s.cfg.BcryptCost)
	if err != nil {
		return Challenge{}, fmt.Errorf("otp: hash code: %w", err)
	}
	now := s.now()
	ch := Challenge{
		ID:        NewChallengeID(),
		Phone:     phone,
		CodeHash:  hash,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.CodeTTL),
	}
	if err := s.store.Put(ctx, ch); err != nil {
		return Challenge{}, fmt.Errorf("otp: store challenge: %w", err)
	}
	if err := s.sms.SendVerificationCode(ctx, phone, code); err != nil {
		_ = s.store.Del(ctx, phone)
		return Challenge{}, fmt.Errorf("otp: send sms: %w", err)
	}
	s.log.WithFields(logrus.Fields{"phone": core.MaskPhone(phone), "challenge_id": ch.ID}).Info("verification code issued")
	return ch, nil
}

// ConfirmCode checks code against the pending challenge for phone. A
// challenge is consumed on success and discarded once its attempts run out.
func (s *Service) ConfirmCode(ctx context.Context, phone, code string) (Proof, error) {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	ch, ok, err := s.store.IncrAttempts(ctx, phone)
	if err != nil {
		return Proof{}, fmt.Errorf("otp: count attempt: %w", err)
	}
	if !ok {
		return Proof{}, ErrCodeNotFound
	}
	now := s.now()
	if now.After(ch.ExpiresAt) {
		_ = s.store.Del(ctx, phone)
		return Proof{}, ErrCodeExpired
	}
	limit := s.cfg.Policy.MaxVerifyAttempts
	if ch.Attempts > limit {
		_ = s.store.Del(ctx, phone)
		return Proof{}, ErrTooManyAttempts
	}

	match, err := VerifyCodeHash(ch.CodeHash, code)
	if err != nil {
		return Proof{}, fmt.Errorf("otp: compare code: %w", err)
	}
	fields := logrus.Fields{"phone": core.MaskPhone(phone), "challenge_id": ch.ID, "attempt": ch.Attempts}
	if !match {
		if ch.Attempts >= limit {
			_ = s.store.Del(ctx, phone)
			s.log.WithFields(fields).Warn("verification attempts exhausted")
			return Proof{}, ErrTooManyAttempts
		}
		s.log.WithFields(fields).Info("verification code mismatch")
		return Proof{}, ErrInvalidCode
	}
	_ = s.store.Del(ctx, phone)

	if s.recorder != nil {
		if err := s.recorder.MarkPhoneVerified(ctx, phone, now); err != nil {
			return Proof{}, fmt.Errorf("otp: record verification: %w", err)
		}
	}
	var proof Proof
	if s.proofs != nil {
		tok, exp, err := s.proofs.IssuePhoneProof(ctx, phone)
		if err != nil {
			return Proof{}, fmt.Errorf("otp: issue proof: %w", err)
		}
		proof = Proof{Token: tok, ExpiresAt: exp}
	}
	s.log.WithFields(fields).Info("phone verified")
	return proof, nil
}

// Sweep purges expired challenges when the store needs it.
func (s *Service) Sweep(_ context.Context) int {
	sw, ok := s.store.(Sweeper)
	if !ok {
		return 0
	}
	return sw.Sweep(s.now())
}
