package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the single authoritative state of a verification session.
type Status int

const (
	StatusIdle Status = iota
	StatusSending
	StatusCodeSent
	StatusVerifying
	StatusVerified
	StatusSendFailed
	StatusVerifyFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSending:
		return "sending"
	case StatusCodeSent:
		return "code_sent"
	case StatusVerifying:
		return "verifying"
	case StatusVerified:
		return "verified"
	case StatusSendFailed:
		return "send_failed"
	case StatusVerifyFailed:
		return "verify_failed"
	default:
		return "unknown"
	}
}

// Operation is the kind of asynchronous call a session dispatches.
type Operation string

const (
	OpSend   Operation = "send"
	OpVerify Operation = "verify"
)

// TransitionKind tags the result of a session command.
type TransitionKind string

const (
	TransitionNone             TransitionKind = ""
	TransitionPhoneChanged     TransitionKind = "phone_changed"
	TransitionSendStarted      TransitionKind = "send_started"
	TransitionResendStarted    TransitionKind = "resend_started"
	TransitionCodeSent         TransitionKind = "code_sent"
	TransitionSendFailed       TransitionKind = "send_failed"
	TransitionCodeEdited       TransitionKind = "code_edited"
	TransitionFocusChanged     TransitionKind = "focus_changed"
	TransitionVerifyStarted    TransitionKind = "verify_started"
	TransitionVerified         TransitionKind = "verified"
	TransitionVerifyFailed     TransitionKind = "verify_failed"
	TransitionLocked           TransitionKind = "locked"
	TransitionStaleDropped     TransitionKind = "stale_dropped"
	TransitionCooldownTick     TransitionKind = "cooldown_tick"
	TransitionCooldownFinished TransitionKind = "cooldown_finished"
	TransitionReset            TransitionKind = "reset"
)

// Transition describes what a command did to the session.
type Transition struct {
	Kind      TransitionKind
	From      Status
	To        Status
	RequestID uint64
	Err       *Error
	// Focus is set when the command moved code entry focus.
	Focus *FocusDirective
}

// Dispatch is an accepted asynchronous operation. The caller performs it
// against a Transport and reports the outcome with Resolve.
type Dispatch struct {
	Op         Operation
	RequestID  uint64
	Phone      string
	Code       string
	Resend     bool
	Transition Transition
}

// Result is the outcome of a Dispatch.
type Result struct {
	Op        Operation
	RequestID uint64
	Ack       Ack
	Err       error
}

// State is a read-only snapshot of a session.
type State struct {
	SessionID             string
	PhoneNumber           string
	PendingCode           string
	Digits                []string
	Focus                 int
	Status                Status
	LastError             *Error
	ResendCooldownSeconds int
	CanResend             bool
	SendAttempts          int
	VerifyAttempts        int
	Locked                bool
	Proof                 Ack
}

// Session owns the phone verification workflow. It performs no I/O and
// is not safe for concurrent use; a single event loop must drive it.
type Session struct {
	cfg    Config
	id     string
	logger EventLogger
	now    func() time.Time

	phone          string
	entry          CodeEntry
	status         Status
	lastErr        *Error
	cooldown       int
	sendAttempts   int
	verifyAttempts int
	locked         bool
	proof          Ack

	seq          uint64
	latestSend   uint64
	latestVerify uint64
}

// Option configures a Session.
type Option func(*Session)

// WithEventLogger sets the sink for verification events.
func WithEventLogger(l EventLogger) Option {
	return func(s *Session) { s.logger = l }
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(s *Session) {
		if strings.TrimSpace(id) != "" {
			s.id = id
		}
	}
}

// WithNow sets the time source used to stamp events.
func WithNow(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession creates an idle session.
func NewSession(cfg Config, opts ...Option) *Session {
	cfg = cfg.defaulted()
	s := &Session{
		cfg:   cfg,
		id:    uuid.NewString(),
		now:   time.Now,
		entry: NewCodeEntry(cfg.CodeLength),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string        { return s.id }
func (s *Session) Config() Config    { return s.cfg }
func (s *Session) Status() Status    { return s.status }
func (s *Session) LastError() *Error { return s.lastErr }
func (s *Session) CanResend() bool   { return s.cooldown == 0 }
func (s *Session) Cooldown() int     { return s.cooldown }
func (s *Session) Entry() CodeEntry  { return s.entry }

// State returns a snapshot of the session.
func (s *Session) State() State {
	return State{
		SessionID:             s.id,
		PhoneNumber:           s.phone,
		PendingCode:           s.entry.Partial(),
		Digits:                s.entry.Digits(),
		Focus:                 s.entry.Focus(),
		Status:                s.status,
		LastError:             s.lastErr,
		ResendCooldownSeconds: s.cooldown,
		CanResend:             s.cooldown == 0,
		SendAttempts:          s.sendAttempts,
		VerifyAttempts:        s.verifyAttempts,
		Locked:                s.locked,
		Proof:                 s.proof,
	}
}

// SetPhoneNumber replaces the phone number and clears the last error.
// Validation is deferred to SendCode.
func (s *Session) SetPhoneNumber(value string) (Transition, error) {
	switch s.status {
	case StatusVerified:
		return Transition{}, ErrSessionVerified
	case StatusIdle, StatusSendFailed:
	default:
		return Transition{}, invalidTransition("phone change", s.status)
	}
	s.phone = value
	s.lastErr = nil
	return Transition{Kind: TransitionPhoneChanged, From: s.status, To: s.status}, nil
}

// SendCode accepts a code dispatch for the current phone number.
// Invalid numbers are rejected before any state change.
func (s *Session) SendCode() (Dispatch, error) {
	return s.send(false)
}

// ResendCode behaves like SendCode once the cooldown has elapsed.
func (s *Session) ResendCode() (Dispatch, error) {
	if s.status == StatusVerified {
		return Dispatch{}, ErrSessionVerified
	}
	if s.cooldown > 0 {
		return Dispatch{}, ErrResendNotYetAllowed
	}
	return s.send(true)
}

func (s *Session) send(resend bool) (Dispatch, error) {
	if s.status == StatusVerified {
		return Dispatch{}, ErrSessionVerified
	}
	phone := strings.TrimSpace(s.phone)
	if !s.cfg.ValidPhone(phone) {
		return Dispatch{}, ErrInvalidPhoneFormat
	}
	if resend {
		if s.status == StatusVerifying {
			return Dispatch{}, invalidTransition("resend", s.status)
		}
	} else {
		switch s.status {
		case StatusIdle, StatusSending:
		case StatusSendFailed:
			// A failed send keeps its cooldown.
			if s.cooldown > 0 {
				return Dispatch{}, ErrResendNotYetAllowed
			}
		default:
			return Dispatch{}, invalidTransition("send", s.status)
		}
	}

	from := s.status
	s.seq++
	id := s.seq
	s.latestSend = id
	s.status = StatusSending
	s.clearError()
	// Cooldown starts at dispatch, not on success.
	s.cooldown = s.cfg.CooldownSeconds()
	s.sendAttempts++

	kind, name := TransitionSendStarted, EventSendStarted
	if resend {
		kind, name = TransitionResendStarted, EventResendStarted
	}
	s.emit(name, id, s.sendAttempts, nil)
	return Dispatch{
		Op:         OpSend,
		RequestID:  id,
		Phone:      phone,
		Resend:     resend,
		Transition: Transition{Kind: kind, From: from, To: StatusSending, RequestID: id},
	}, nil
}

// SetDigit writes one character into cell i and clears the last error.
func (s *Session) SetDigit(i int, value string) (Transition, error) {
	if err := s.editable(); err != nil {
		return Transition{}, err
	}
	next, dir, err := s.entry.SetDigit(i, value)
	if err != nil {
		return Transition{}, err
	}
	s.entry = next
	s.clearError()
	return Transition{Kind: TransitionCodeEdited, From: s.status, To: s.status, Focus: &dir}, nil
}

// Backspace applies a backspace key at cell i.
func (s *Session) Backspace(i int) (Transition, error) {
	if err := s.editable(); err != nil {
		return Transition{}, err
	}
	next, dir, err := s.entry.Backspace(i)
	if err != nil {
		return Transition{}, err
	}
	s.entry = next
	return Transition{Kind: TransitionCodeEdited, From: s.status, To: s.status, Focus: &dir}, nil
}

// SetFocus records that the UI focused cell i. Focusing a cell clears a
// previous verification error unless the session is locked.
func (s *Session) SetFocus(i int) Transition {
	next, dir := s.entry.WithFocus(i)
	s.entry = next
	if s.status != StatusVerified {
		s.clearError()
	}
	return Transition{Kind: TransitionFocusChanged, From: s.status, To: s.status, Focus: &dir}
}

// clearError drops the last error unless the session is locked, whose
// error stays visible until Reset.
func (s *Session) clearError() {
	if !s.locked {
		s.lastErr = nil
	}
}

func (s *Session) editable() error {
	switch s.status {
	case StatusVerified:
		return ErrSessionVerified
	case StatusVerifying:
		return invalidTransition("code edit", s.status)
	}
	return nil
}

// VerifyCode accepts a verification dispatch for the composed code.
func (s *Session) VerifyCode() (Dispatch, error) {
	if s.status == StatusVerified {
		return Dispatch{}, ErrSessionVerified
	}
	if s.locked || s.verifyAttempts >= s.cfg.MaxVerifyAttempts {
		return Dispatch{}, ErrTooManyAttempts
	}
	code, ok := s.entry.Composed()
	if !ok {
		return Dispatch{}, ErrIncompleteCode
	}
	switch s.status {
	case StatusCodeSent, StatusVerifyFailed, StatusVerifying:
	default:
		return Dispatch{}, invalidTransition("verify", s.status)
	}

	from := s.status
	s.seq++
	id := s.seq
	s.latestVerify = id
	s.status = StatusVerifying
	s.lastErr = nil
	s.verifyAttempts++
	s.emit(EventVerifyStarted, id, s.verifyAttempts, nil)
	return Dispatch{
		Op:         OpVerify,
		RequestID:  id,
		Phone:      strings.TrimSpace(s.phone),
		Code:       code,
		Transition: Transition{Kind: TransitionVerifyStarted, From: from, To: StatusVerifying, RequestID: id},
	}, nil
}

// Resolve applies the outcome of a dispatch. Outcomes whose request id is
// not the latest outstanding one for their operation are dropped.
func (s *Session) Resolve(r Result) Transition {
	switch r.Op {
	case OpSend:
		if r.RequestID == 0 || r.RequestID != s.latestSend || s.status != StatusSending {
			return s.stale(r)
		}
		s.latestSend = 0
		return s.resolveSend(r)
	case OpVerify:
		if r.RequestID == 0 || r.RequestID != s.latestVerify || s.status != StatusVerifying {
			return s.stale(r)
		}
		s.latestVerify = 0
		return s.resolveVerify(r)
	}
	return Transition{}
}

func (s *Session) resolveSend(r Result) Transition {
	if r.Err != nil {
		s.status = StatusSendFailed
		s.lastErr = TransportFailure(r.Err.Error())
		s.emit(EventSendFailed, r.RequestID, s.sendAttempts, r.Err)
		return Transition{Kind: TransitionSendFailed, From: StatusSending, To: StatusSendFailed, RequestID: r.RequestID, Err: s.lastErr}
	}
	s.status = StatusCodeSent
	s.emit(EventCodeSent, r.RequestID, s.sendAttempts, nil)
	return Transition{Kind: TransitionCodeSent, From: StatusSending, To: StatusCodeSent, RequestID: r.RequestID}
}

func (s *Session) resolveVerify(r Result) Transition {
	if r.Err == nil {
		s.status = StatusVerified
		s.proof = r.Ack
		s.emit(EventVerified, r.RequestID, s.verifyAttempts, nil)
		return Transition{Kind: TransitionVerified, From: StatusVerifying, To: StatusVerified, RequestID: r.RequestID}
	}

	// Digits are kept; focus returns to the first cell.
	s.status = StatusVerifyFailed
	next, dir := s.entry.WithFocus(0)
	s.entry = next
	dir.Move = FocusFirst

	if s.verifyAttempts >= s.cfg.MaxVerifyAttempts || KindOf(r.Err) == KindTooManyAttempts {
		s.locked = true
		s.lastErr = &Error{Kind: KindTooManyAttempts, Message: ErrTooManyAttempts.Message}
		s.emit(EventLocked, r.RequestID, s.verifyAttempts, r.Err)
		return Transition{Kind: TransitionLocked, From: StatusVerifying, To: StatusVerifyFailed, RequestID: r.RequestID, Err: s.lastErr, Focus: &dir}
	}
	msg := r.Err.Error()
	if msg == "" {
		msg = ErrInvalidCode.Message
	}
	s.lastErr = &Error{Kind: KindInvalidCode, Message: msg}
	s.emit(EventVerifyFailed, r.RequestID, s.verifyAttempts, r.Err)
	return Transition{Kind: TransitionVerifyFailed, From: StatusVerifying, To: StatusVerifyFailed, RequestID: r.RequestID, Err: s.lastErr, Focus: &dir}
}

func (s *Session) stale(r Result) Transition {
	s.emit(EventStaleDropped, r.RequestID, 0, r.Err)
	return Transition{Kind: TransitionStaleDropped, From: s.status, To: s.status, RequestID: r.RequestID}
}

// TickCooldown advances the resend cooldown by one second.
func (s *Session) TickCooldown() Transition {
	if s.cooldown == 0 {
		return Transition{From: s.status, To: s.status}
	}
	s.cooldown--
	if s.cooldown == 0 {
		s.emit(EventCooldownFinished, 0, 0, nil)
		return Transition{Kind: TransitionCooldownFinished, From: s.status, To: s.status}
	}
	return Transition{Kind: TransitionCooldownTick, From: s.status, To: s.status}
}

// Reset returns the session to Idle. The phone number is kept; the code,
// error, lock and cooldown are cleared and outstanding requests become
// stale.
func (s *Session) Reset() Transition {
	from := s.status
	s.status = StatusIdle
	s.entry = s.entry.Clear()
	s.lastErr = nil
	s.locked = false
	s.verifyAttempts = 0
	s.cooldown = 0
	s.proof = Ack{}
	s.latestSend = 0
	s.latestVerify = 0
	s.emit(EventReset, 0, 0, nil)
	return Transition{Kind: TransitionReset, From: from, To: StatusIdle}
}

func (s *Session) emit(name EventName, id uint64, attempt int, err error) {
	if s.logger == nil {
		return
	}
	ev := Event{
		Name:      name,
		SessionID: s.id,
		Phone:     MaskPhone(strings.TrimSpace(s.phone)),
		RequestID: id,
		Attempt:   attempt,
		Status:    s.status,
		Err:       err,
		At:        s.now(),
	}
	defer func() { _ = recover() }()
	_ = s.logger.LogEvent(context.Background(), ev)
}
