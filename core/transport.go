package core

import (
	"context"
	"time"
)

// Ack is a successful transport response.
type Ack struct {
	Message string
	// Token is the proof of phone ownership returned by a successful verify.
	Token     string
	ExpiresAt time.Time
}

// Transport dispatches codes and checks them against a backend.
// Any returned error is treated as "operation failed"; its message is
// surfaced to the user.
type Transport interface {
	SendVerificationCode(ctx context.Context, phone string) (Ack, error)
	VerifyCode(ctx context.Context, phone, code string) (Ack, error)
}
