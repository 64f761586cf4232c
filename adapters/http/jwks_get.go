package otphttp

import (
	"net/http"

	jwtkit "github.com/PaulFidika/otpkit/jwt"
)

// JWKSHandler serves the public JWKS document.
func JWKSHandler(keys jwtkit.KeySource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jwtkit.ServeJWKS(w, r, jwtkit.BuildJWKS(keys))
	})
}
