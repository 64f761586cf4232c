package jwtkit

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestProofIssuer_RoundTrip(t *testing.T) {
	ks, err := NewKeySource("test-kid", "")
	if err != nil {
		t.Fatalf("key source: %v", err)
	}
	p := &ProofIssuer{Keys: ks, Issuer: "otpkit-test", TTL: time.Minute}
	tok, exp, err := p.IssuePhoneProof(context.Background(), "0912345678")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected future expiry, got %v", exp)
	}
	phone, err := ParsePhoneProof(ks, "otpkit-test", tok)
	if err != nil || phone != "0912345678" {
		t.Fatalf("parse: phone=%q err=%v", phone, err)
	}
	if _, err := ParsePhoneProof(ks, "someone-else", tok); err == nil {
		t.Fatalf("expected issuer mismatch")
	}
}

func TestProofIssuer_Expired(t *testing.T) {
	ks, _ := NewKeySource("k", "")
	past := time.Now().Add(-time.Hour)
	p := &ProofIssuer{Keys: ks, Issuer: "iss", TTL: time.Minute, Now: func() time.Time { return past }}
	tok, _, err := p.IssuePhoneProof(context.Background(), "0912345678")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParsePhoneProof(ks, "iss", tok); err == nil {
		t.Fatalf("expected expired token rejected")
	}
}

func TestNewKeySource_FromPEM(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "signing.pem")
	if err := os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	ks, err := NewKeySource("pem-kid", path)
	if err != nil {
		t.Fatalf("key source: %v", err)
	}
	if pub := ks.PublicKeys()["pem-kid"]; pub == nil || pub.N.Cmp(key.N) != 0 {
		t.Fatalf("expected the file's public key published")
	}
	tok, _, err := (&ProofIssuer{Keys: ks, Issuer: "iss"}).IssuePhoneProof(context.Background(), "0912345678")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other, _ := NewKeySource("other-kid", "")
	if _, err := ParsePhoneProof(other, "iss", tok); err == nil {
		t.Fatalf("expected unknown kid rejected")
	}
	if _, err := NewKeySource("k", filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Fatalf("expected missing key file error")
	}
}

func TestServeJWKS_ETag(t *testing.T) {
	ks, _ := NewKeySource("kid-1", "")
	set := BuildJWKS(ks)
	if len(set.Keys) != 1 || set.Keys[0].Kid != "kid-1" || set.Keys[0].Alg != "RS256" {
		t.Fatalf("unexpected jwks: %+v", set)
	}

	w := httptest.NewRecorder()
	ServeJWKS(w, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil), set)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var decoded JWKS
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil || len(decoded.Keys) != 1 {
		t.Fatalf("decode: %v %+v", err, decoded)
	}

	r := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	r.Header.Set("If-None-Match", w.Header().Get("ETag"))
	w2 := httptest.NewRecorder()
	ServeJWKS(w2, r, set)
	if w2.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w2.Code)
	}
}
