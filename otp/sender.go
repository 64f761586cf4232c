package otp

import (
	"context"

	"github.com/PaulFidika/otpkit/core"
	"github.com/sirupsen/logrus"
)

// SMSSender delivers verification codes.
type SMSSender interface {
	SendVerificationCode(ctx context.Context, phone, code string) error
}

// LogSender logs codes instead of sending them. Development only.
type LogSender struct {
	Log logrus.FieldLogger
}

func (s LogSender) SendVerificationCode(_ context.Context, phone, code string) error {
	log := s.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithFields(logrus.Fields{"phone": core.MaskPhone(phone), "code": code}).Info("verification code (not sent, log sender)")
	return nil
}
