package httpclient_test

import (
	"context"
	"errors"
	"testing"

	"github.com/PaulFidika/otpkit/core"
	"github.com/PaulFidika/otpkit/otptest"
	"github.com/PaulFidika/otpkit/transport/httpclient"
)

func TestClient_SendAndVerify(t *testing.T) {
	be := otptest.NewBackend()
	defer be.Close()

	ctx := context.Background()
	c := httpclient.New(be.URL(), httpclient.WithProofVerification(be.URL()))
	ack, err := c.SendVerificationCode(ctx, "0912345678")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if ack.ExpiresAt.IsZero() {
		t.Fatalf("expected expiry in ack")
	}
	code := be.LastCode("0912345678")
	ack, err = c.VerifyCode(ctx, "0912345678", code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ack.Token == "" {
		t.Fatalf("expected proof token")
	}
}

func TestClient_ErrorKinds(t *testing.T) {
	be := otptest.NewBackend()
	defer be.Close()
	ctx := context.Background()
	c := httpclient.New(be.URL(), httpclient.WithLanguage("en-US"))

	_, err := c.SendVerificationCode(ctx, "12345")
	if !errors.Is(err, core.ErrInvalidPhoneFormat) {
		t.Fatalf("expected invalid phone kind, got %v", err)
	}

	if _, err := c.SendVerificationCode(ctx, "0912345678"); err != nil {
		t.Fatalf("send: %v", err)
	}
	wrong := "000000"
	if be.LastCode("0912345678") == wrong {
		wrong = "111111"
	}
	_, err = c.VerifyCode(ctx, "0912345678", wrong)
	if !errors.Is(err, core.ErrInvalidCode) || err.Error() != "Incorrect verification code" {
		t.Fatalf("expected localized invalid code, got %v", err)
	}
	for i := 0; i < 4; i++ {
		_, err = c.VerifyCode(ctx, "0912345678", wrong)
	}
	if !errors.Is(err, core.ErrTooManyAttempts) {
		t.Fatalf("expected too many attempts after 5 misses, got %v", err)
	}
}

func TestClient_SMSFailureIsTransportFailure(t *testing.T) {
	be := otptest.NewBackend()
	defer be.Close()
	be.Sender.SetFailing(true)

	_, err := httpclient.New(be.URL()).SendVerificationCode(context.Background(), "0912345678")
	if core.KindOf(err) != core.KindTransportFailure {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestClient_Unreachable(t *testing.T) {
	_, err := httpclient.New("http://127.0.0.1:1").SendVerificationCode(context.Background(), "0912345678")
	if core.KindOf(err) != core.KindTransportFailure {
		t.Fatalf("expected transport failure, got %v", err)
	}
}
