package core

import "errors"

// ErrorKind classifies verification failures.
type ErrorKind string

const (
	KindInvalidPhoneFormat  ErrorKind = "invalid_phone_format"
	KindIncompleteCode      ErrorKind = "incomplete_code"
	KindInvalidCode         ErrorKind = "invalid_code"
	KindResendNotYetAllowed ErrorKind = "resend_not_yet_allowed"
	KindTooManyAttempts     ErrorKind = "too_many_attempts"
	KindTransportFailure    ErrorKind = "transport_failure"
	KindSessionVerified     ErrorKind = "session_verified"
	KindInvalidTransition   ErrorKind = "invalid_transition"
)

// Error is a verification error. Two errors match under errors.Is when
// their kinds are equal, so callers can compare against the Err* values
// regardless of the message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidPhoneFormat  = &Error{Kind: KindInvalidPhoneFormat, Message: "invalid phone number format"}
	ErrIncompleteCode      = &Error{Kind: KindIncompleteCode, Message: "verification code is incomplete"}
	ErrInvalidCode         = &Error{Kind: KindInvalidCode, Message: "verification code is incorrect"}
	ErrResendNotYetAllowed = &Error{Kind: KindResendNotYetAllowed, Message: "resend is not yet allowed"}
	ErrTooManyAttempts     = &Error{Kind: KindTooManyAttempts, Message: "too many verification attempts"}
	ErrTransportFailure    = &Error{Kind: KindTransportFailure, Message: "transport failure"}
	ErrSessionVerified     = &Error{Kind: KindSessionVerified, Message: "session already verified"}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition, Message: "operation not allowed in current state"}

	ErrIndexOutOfRange = errors.New("digit index out of range")
)

// TransportFailure wraps a collaborator error message.
func TransportFailure(message string) *Error {
	if message == "" {
		message = ErrTransportFailure.Message
	}
	return &Error{Kind: KindTransportFailure, Message: message}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func invalidTransition(op string, st Status) *Error {
	return &Error{Kind: KindInvalidTransition, Message: op + " not allowed while " + st.String()}
}
