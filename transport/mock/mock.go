// Package mock is an offline core.Transport with fixed latency. Code
// 000000 is always rejected; every other complete code is accepted.
package mock

import (
	"context"
	"time"

	"github.com/PaulFidika/otpkit/core"
)

// RejectedCode is the code the mock treats as wrong.
const RejectedCode = "000000"

type Transport struct {
	Delay  time.Duration
	Policy core.Config
}

// New returns a mock with a one second delay and the default policy.
func New() *Transport {
	return &Transport{Delay: time.Second, Policy: core.DefaultConfig()}
}

func (t *Transport) wait(ctx context.Context) error {
	if t.Delay <= 0 {
		if err := ctx.Err(); err != nil {
			return core.TransportFailure(err.Error())
		}
		return nil
	}
	timer := time.NewTimer(t.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return core.TransportFailure(ctx.Err().Error())
	case <-timer.C:
		return nil
	}
}

func (t *Transport) SendVerificationCode(ctx context.Context, phone string) (core.Ack, error) {
	if err := t.wait(ctx); err != nil {
		return core.Ack{}, err
	}
	if !t.Policy.Defaulted().ValidPhone(phone) {
		return core.Ack{}, core.ErrInvalidPhoneFormat
	}
	return core.Ack{Message: "sent"}, nil
}

func (t *Transport) VerifyCode(ctx context.Context, phone, code string) (core.Ack, error) {
	if err := t.wait(ctx); err != nil {
		return core.Ack{}, err
	}
	if len(code) != t.Policy.Defaulted().CodeLength {
		return core.Ack{}, core.ErrIncompleteCode
	}
	if code == RejectedCode {
		return core.Ack{}, core.ErrInvalidCode
	}
	return core.Ack{Message: "verified"}, nil
}
