package jwtkit

import (
	"context"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// PhoneProofClaims assert that PhoneNumber was verified. Subject carries
// the same number.
type PhoneProofClaims struct {
	PhoneNumber         string `json:"phone_number"`
	PhoneNumberVerified bool   `json:"phone_number_verified"`
	jwt.RegisteredClaims
}

// ProofIssuer mints short-lived RS256 tokens asserting that a phone number
// was verified.
type ProofIssuer struct {
	Keys   KeySource
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

func (p *ProofIssuer) IssuePhoneProof(_ context.Context, phone string) (string, time.Time, error) {
	if p == nil || p.Keys == nil || p.Keys.SigningKey().Key == nil {
		return "", time.Time{}, errors.New("no signing key")
	}
	key := p.Keys.SigningKey()
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}
	ttl := p.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	exp := now.Add(ttl)
	claims := PhoneProofClaims{
		PhoneNumber:         phone,
		PhoneNumberVerified: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   phone,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = key.KID
	signed, err := token.SignedString(key.Key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParsePhoneProof validates tok against the source's public keys and
// returns the verified phone number.
func ParsePhoneProof(keys KeySource, issuer, tok string) (string, error) {
	var claims PhoneProofClaims
	_, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		pub, ok := keys.PublicKeys()[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return pub, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !claims.PhoneNumberVerified {
		return "", errors.New("phone not verified")
	}
	if claims.PhoneNumber == "" || claims.PhoneNumber != claims.Subject {
		return "", errors.New("missing phone_number")
	}
	return claims.PhoneNumber, nil
}
