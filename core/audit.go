package core

import (
	"context"
	"time"
)

// EventName identifies a verification event.
type EventName string

const (
	EventSendStarted      EventName = "verification_start"
	EventResendStarted    EventName = "verification_resend"
	EventCodeSent         EventName = "verification_code_sent"
	EventSendFailed       EventName = "verification_send_failed"
	EventVerifyStarted    EventName = "verification_verify_start"
	EventVerified         EventName = "verification_success"
	EventVerifyFailed     EventName = "verification_failed"
	EventLocked           EventName = "verification_locked"
	EventStaleDropped     EventName = "verification_stale_response"
	EventCooldownFinished EventName = "verification_resend_enabled"
	EventReset            EventName = "verification_reset"
)

// Event is a structured verification event. Phone is always masked.
type Event struct {
	Name      EventName
	SessionID string
	Phone     string
	RequestID uint64
	Attempt   int
	Status    Status
	Err       error
	At        time.Time
}

// EventLogger records verification events to an external sink.
// Implementations should be non-blocking and best-effort.
type EventLogger interface {
	LogEvent(ctx context.Context, ev Event) error
}
