package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cc, err := cfg.Core()
	if err != nil {
		t.Fatalf("Core: %v", err)
	}
	if cc.CodeLength != 6 || cc.ResendCooldown != 60*time.Second || cc.MaxVerifyAttempts != 5 {
		t.Fatalf("unexpected defaults %+v", cc)
	}
	if !cc.ValidPhone("0912345678") || cc.ValidPhone("0812345678") {
		t.Fatalf("default phone pattern not applied")
	}
	if cfg.Verification.CodeTTL != 5*time.Minute || cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected server defaults %+v %+v", cfg.Verification, cfg.Server)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
verification:
  phone_pattern: '^\+[1-9]\d{1,14}$'
  code_length: 4
  resend_cooldown: 30s
  max_verify_attempts: 3
server:
  addr: ":9090"
redis:
  addr: "localhost:6379"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cc, _ := cfg.Core()
	if cc.CodeLength != 4 || cc.ResendCooldown != 30*time.Second || cc.MaxVerifyAttempts != 3 {
		t.Fatalf("unexpected policy %+v", cc)
	}
	if !cc.ValidPhone("+15555550123") {
		t.Fatalf("custom pattern not applied")
	}
	if cfg.Server.Addr != ":9090" || cfg.Redis.Addr != "localhost:6379" || cfg.Redis.KeyPrefix != "otp:" {
		t.Fatalf("unexpected sections %+v %+v", cfg.Server, cfg.Redis)
	}
}

func TestParse_BadPattern(t *testing.T) {
	if _, err := Parse([]byte("verification:\n  phone_pattern: '(['\n")); err == nil {
		t.Fatalf("expected invalid pattern error")
	}
}
