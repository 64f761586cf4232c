package httpclient

import (
	"context"
	"errors"
	"sync"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ProofVerifier validates phone proof tokens against a remote JWKS. The key
// set is fetched once and refetched when a token fails to validate.
type ProofVerifier struct {
	jwksURL string
	issuer  string

	mu  sync.Mutex
	set jwk.Set
}

func NewProofVerifier(jwksURL, issuer string) *ProofVerifier {
	return &ProofVerifier{jwksURL: jwksURL, issuer: issuer}
}

func (v *ProofVerifier) keySet(ctx context.Context, refresh bool) (jwk.Set, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.set != nil && !refresh {
		return v.set, nil
	}
	set, err := jwk.Fetch(ctx, v.jwksURL)
	if err != nil {
		return nil, err
	}
	v.set = set
	return set, nil
}

// Verify checks signature, expiry, issuer and that the token asserts phone.
func (v *ProofVerifier) Verify(ctx context.Context, raw, phone string) error {
	if raw == "" {
		return errors.New("missing proof token")
	}
	set, err := v.keySet(ctx, false)
	if err != nil {
		return err
	}
	token, err := v.parse(ctx, raw, set)
	if err != nil {
		if set, ferr := v.keySet(ctx, true); ferr == nil {
			token, err = v.parse(ctx, raw, set)
		}
		if err != nil {
			return err
		}
	}
	got, _ := token.Get("phone_number")
	if s, _ := got.(string); s != phone {
		return errors.New("proof is for a different phone number")
	}
	verified, _ := token.Get("phone_number_verified")
	if b, _ := verified.(bool); !b {
		return errors.New("proof does not assert verification")
	}
	return nil
}

func (v *ProofVerifier) parse(ctx context.Context, raw string, set jwk.Set) (jwt.Token, error) {
	opts := []jwt.ParseOption{
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithContext(ctx),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	return jwt.ParseString(raw, opts...)
}
