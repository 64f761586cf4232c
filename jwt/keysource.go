package jwtkit

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"os"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

// SigningKey signs phone proofs; KID is set on every token header.
type SigningKey struct {
	KID string
	Key *rsa.PrivateKey
}

// KeySource provides the key that signs new proofs and the public keys
// published in the JWKS.
type KeySource interface {
	SigningKey() SigningKey
	PublicKeys() map[string]*rsa.PublicKey
}

// StaticKeySource is a fixed key set.
type StaticKeySource struct {
	Signing SigningKey
	Pubs    map[string]*rsa.PublicKey
}

func (s StaticKeySource) SigningKey() SigningKey                { return s.Signing }
func (s StaticKeySource) PublicKeys() map[string]*rsa.PublicKey { return s.Pubs }

// NewKeySource loads the RSA key at pemFile (PKCS1 or PKCS8), or generates
// an ephemeral one when pemFile is empty. Ephemeral keys invalidate
// outstanding proofs on restart.
func NewKeySource(kid, pemFile string) (KeySource, error) {
	if kid == "" {
		kid = "otpkit-1"
	}
	var (
		key *rsa.PrivateKey
		err error
	)
	if strings.TrimSpace(pemFile) != "" {
		b, rerr := os.ReadFile(pemFile)
		if rerr != nil {
			return nil, fmt.Errorf("read signing key: %w", rerr)
		}
		key, err = jwt.ParseRSAPrivateKeyFromPEM(b)
	} else {
		key, err = rsa.GenerateKey(rand.Reader, 2048)
	}
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}
	return StaticKeySource{
		Signing: SigningKey{KID: kid, Key: key},
		Pubs:    map[string]*rsa.PublicKey{kid: &key.PublicKey},
	}, nil
}
