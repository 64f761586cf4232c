package otp

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/mr-tron/base58"
)

const codeChars = "0123456789"

// GenerateCode returns a random numeric code of length n.
func GenerateCode(n int) (string, error) {
	if n <= 0 {
		n = 6
	}
	var sb strings.Builder
	sb.Grow(n)
	radix := big.NewInt(int64(len(codeChars)))
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, radix)
		if err != nil {
			return "", err
		}
		sb.WriteByte(codeChars[v.Int64()])
	}
	return sb.String(), nil
}

// NewChallengeID returns a random base58 identifier.
func NewChallengeID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base58.Encode(b)
}
