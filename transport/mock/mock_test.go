package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PaulFidika/otpkit/core"
)

func TestMock(t *testing.T) {
	m := &Transport{Policy: core.DefaultConfig()}
	ctx := context.Background()
	if _, err := m.SendVerificationCode(ctx, "0912345678"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := m.SendVerificationCode(ctx, "12345"); !errors.Is(err, core.ErrInvalidPhoneFormat) {
		t.Fatalf("expected invalid phone, got %v", err)
	}
	if _, err := m.VerifyCode(ctx, "0912345678", "000000"); !errors.Is(err, core.ErrInvalidCode) {
		t.Fatalf("expected 000000 rejected, got %v", err)
	}
	if _, err := m.VerifyCode(ctx, "0912345678", "123456"); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestMock_ContextCancel(t *testing.T) {
	m := &Transport{Delay: time.Hour, Policy: core.DefaultConfig()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.SendVerificationCode(ctx, "0912345678"); core.KindOf(err) != core.KindTransportFailure {
		t.Fatalf("expected transport failure on cancel, got %v", err)
	}
}
