// Package httpclient implements core.Transport against the verification
// HTTP API.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PaulFidika/otpkit/core"
)

const (
	pathSendCode   = "/api/verification/phone"
	pathVerifyCode = "/api/verification/verify"
	pathJWKS       = "/.well-known/jwks.json"
)

// Client calls the send and verify endpoints.
type Client struct {
	baseURL  string
	http     *http.Client
	language string
	proofs   *ProofVerifier
}

type Option func(*Client)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLanguage sets the Accept-Language sent with every request.
func WithLanguage(language string) Option {
	return func(c *Client) { c.language = language }
}

// WithProofVerification checks proof tokens against the server JWKS and
// issuer before reporting success.
func WithProofVerification(issuer string) Option {
	return func(c *Client) {
		c.proofs = NewProofVerifier(c.baseURL+pathJWKS, issuer)
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendResponse struct {
	Ok          bool      `json:"ok"`
	ChallengeID string    `json:"challenge_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type verifyResponse struct {
	Ok        bool      `json:"ok"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) SendVerificationCode(ctx context.Context, phone string) (core.Ack, error) {
	var out sendResponse
	if err := c.post(ctx, pathSendCode, map[string]string{"phone_number": phone}, &out); err != nil {
		return core.Ack{}, err
	}
	return core.Ack{Message: out.ChallengeID, ExpiresAt: out.ExpiresAt}, nil
}

func (c *Client) VerifyCode(ctx context.Context, phone, code string) (core.Ack, error) {
	var out verifyResponse
	if err := c.post(ctx, pathVerifyCode, map[string]string{"phone_number": phone, "code": code}, &out); err != nil {
		return core.Ack{}, err
	}
	if c.proofs != nil {
		if err := c.proofs.Verify(ctx, out.Token, phone); err != nil {
			return core.Ack{}, core.TransportFailure("proof rejected: " + err.Error())
		}
	}
	return core.Ack{Token: out.Token, ExpiresAt: out.ExpiresAt}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return core.TransportFailure(err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return core.TransportFailure(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return core.TransportFailure(fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return core.TransportFailure(err.Error())
	}
	if resp.StatusCode/100 != 2 {
		var er errorResponse
		_ = json.Unmarshal(raw, &er)
		return serverError(resp.StatusCode, er)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return core.TransportFailure("malformed response: " + err.Error())
	}
	return nil
}

// serverError maps the API error code onto a verification error kind.
func serverError(status int, er errorResponse) *core.Error {
	msg := er.Message
	if msg == "" {
		msg = er.Error
	}
	if msg == "" {
		msg = fmt.Sprintf("server returned %d", status)
	}
	switch er.Error {
	case "too_many_attempts":
		return &core.Error{Kind: core.KindTooManyAttempts, Message: msg}
	case "invalid_code", "code_expired", "invalid_or_expired_code":
		return &core.Error{Kind: core.KindInvalidCode, Message: msg}
	case "invalid_phone_number":
		return &core.Error{Kind: core.KindInvalidPhoneFormat, Message: msg}
	}
	return core.TransportFailure(msg)
}
