package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PaulFidika/otpkit/clock"
	"github.com/PaulFidika/otpkit/core"
	"github.com/PaulFidika/otpkit/idp"
)

type call struct {
	op    core.Operation
	phone string
	code  string
	reply chan callResult
}

type callResult struct {
	ack core.Ack
	err error
}

// fakeTransport hands every call to the test, which answers it.
type fakeTransport struct{ calls chan call }

func newFakeTransport() *fakeTransport { return &fakeTransport{calls: make(chan call, 8)} }

func (f *fakeTransport) do(ctx context.Context, c call) (core.Ack, error) {
	c.reply = make(chan callResult, 1)
	select {
	case f.calls <- c:
	case <-ctx.Done():
		return core.Ack{}, ctx.Err()
	}
	select {
	case r := <-c.reply:
		return r.ack, r.err
	case <-ctx.Done():
		return core.Ack{}, ctx.Err()
	}
}

func (f *fakeTransport) SendVerificationCode(ctx context.Context, phone string) (core.Ack, error) {
	return f.do(ctx, call{op: core.OpSend, phone: phone})
}

func (f *fakeTransport) VerifyCode(ctx context.Context, phone, code string) (core.Ack, error) {
	return f.do(ctx, call{op: core.OpVerify, phone: phone, code: code})
}

func (f *fakeTransport) next(t *testing.T) call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for transport call")
	}
	return call{}
}

type harness struct {
	c      *Controller
	tr     *fakeTransport
	ticker *clock.Manual
	snaps  chan Snapshot
}

func startController(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{tr: newFakeTransport(), ticker: clock.NewManual(), snaps: make(chan Snapshot, 512)}
	opts = append([]Option{
		WithTicker(h.ticker),
		WithObserver(func(s Snapshot) {
			select {
			case h.snaps <- s:
			default:
			}
		}),
	}, opts...)
	h.c = New(h.tr, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = h.c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.c.Done()
	})
	return h
}

func (h *harness) waitFor(t *testing.T, what string, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-h.snaps:
			if pred(s) {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
			return Snapshot{}
		}
	}
}

func statusIs(st core.Status) func(Snapshot) bool {
	return func(s Snapshot) bool { return s.State.Status == st }
}

func TestController_SendThenWrongCode(t *testing.T) {
	ctx := context.Background()
	h := startController(t)

	if _, err := h.c.SetPhoneNumber(ctx, "0912345678"); err != nil {
		t.Fatalf("set phone: %v", err)
	}
	if _, err := h.c.SendCode(ctx); err != nil {
		t.Fatalf("send: %v", err)
	}
	send := h.tr.next(t)
	if send.op != core.OpSend || send.phone != "0912345678" {
		t.Fatalf("unexpected call %+v", send)
	}
	send.reply <- callResult{}
	snap := h.waitFor(t, "code sent", statusIs(core.StatusCodeSent))
	if snap.State.ResendCooldownSeconds != 60 || snap.State.CanResend {
		t.Fatalf("expected 60s cooldown, got %d canResend=%v", snap.State.ResendCooldownSeconds, snap.State.CanResend)
	}

	if _, err := h.c.EnterCode(ctx, "123456"); err != nil {
		t.Fatalf("enter code: %v", err)
	}
	if _, err := h.c.VerifyCode(ctx); err != nil {
		t.Fatalf("verify: %v", err)
	}
	verify := h.tr.next(t)
	if verify.op != core.OpVerify || verify.code != "123456" {
		t.Fatalf("unexpected call %+v", verify)
	}
	verify.reply <- callResult{err: core.ErrInvalidCode}
	snap = h.waitFor(t, "verify failed", statusIs(core.StatusVerifyFailed))
	if !errors.Is(snap.State.LastError, core.ErrInvalidCode) {
		t.Fatalf("expected InvalidCode, got %v", snap.State.LastError)
	}
	if snap.State.Focus != 0 {
		t.Fatalf("expected focus 0, got %d", snap.State.Focus)
	}
	if snap.State.PendingCode != "123456" {
		t.Fatalf("expected digits retained, got %q", snap.State.PendingCode)
	}
	if snap.ErrorText != "驗證碼不正確" {
		t.Fatalf("expected localized error, got %q", snap.ErrorText)
	}
}

func TestController_LatestSendWins(t *testing.T) {
	ctx := context.Background()
	h := startController(t)
	_, _ = h.c.SetPhoneNumber(ctx, "0912345678")

	if _, err := h.c.SendCode(ctx); err != nil {
		t.Fatalf("first send: %v", err)
	}
	first := h.tr.next(t)
	if _, err := h.c.SendCode(ctx); err != nil {
		t.Fatalf("second send: %v", err)
	}
	second := h.tr.next(t)

	first.reply <- callResult{}
	h.waitFor(t, "stale drop", func(s Snapshot) bool { return s.Transition.Kind == core.TransitionStaleDropped })
	snap, _ := h.c.Snapshot(ctx)
	if snap.State.Status != core.StatusSending {
		t.Fatalf("expected still sending after stale result, got %v", snap.State.Status)
	}

	second.reply <- callResult{err: errors.New("sms gateway down")}
	snap = h.waitFor(t, "send failed", statusIs(core.StatusSendFailed))
	if core.KindOf(snap.State.LastError) != core.KindTransportFailure || snap.ErrorText != "sms gateway down" {
		t.Fatalf("unexpected error %v / %q", snap.State.LastError, snap.ErrorText)
	}
}

func TestController_CooldownTicks(t *testing.T) {
	ctx := context.Background()
	h := startController(t, WithConfig(core.Config{ResendCooldown: 3 * time.Second}))
	_, _ = h.c.SetPhoneNumber(ctx, "0912345678")
	_, _ = h.c.SendCode(ctx)
	h.tr.next(t).reply <- callResult{}
	h.waitFor(t, "code sent", statusIs(core.StatusCodeSent))

	if !h.ticker.Running() {
		t.Fatalf("expected ticker running during cooldown")
	}
	if _, err := h.c.ResendCode(ctx); !errors.Is(err, core.ErrResendNotYetAllowed) {
		t.Fatalf("expected resend rejected, got %v", err)
	}
	for i := 0; i < 3; i++ {
		h.ticker.Tick()
	}
	snap, _ := h.c.Snapshot(ctx)
	if snap.State.ResendCooldownSeconds != 0 || !snap.State.CanResend {
		t.Fatalf("expected cooldown finished, got %d", snap.State.ResendCooldownSeconds)
	}
	if h.ticker.Running() {
		t.Fatalf("expected ticker stopped at zero")
	}
	if h.ticker.Tick() {
		t.Fatalf("expected no tick after stop")
	}

	if _, err := h.c.ResendCode(ctx); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if c := h.tr.next(t); c.op != core.OpSend {
		t.Fatalf("expected send call, got %v", c.op)
	}
	if !h.ticker.Running() {
		t.Fatalf("expected ticker restarted by resend")
	}
}

func TestController_ResetStopsTicker(t *testing.T) {
	ctx := context.Background()
	h := startController(t)
	_, _ = h.c.SetPhoneNumber(ctx, "0912345678")
	_, _ = h.c.SendCode(ctx)
	pending := h.tr.next(t)

	snap, err := h.c.Reset(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if snap.State.Status != core.StatusIdle || snap.State.ResendCooldownSeconds != 0 || snap.State.PhoneNumber != "0912345678" {
		t.Fatalf("unexpected state after reset %+v", snap.State)
	}
	if h.ticker.Running() {
		t.Fatalf("expected ticker stopped by reset")
	}

	pending.reply <- callResult{}
	h.waitFor(t, "stale drop", func(s Snapshot) bool { return s.Transition.Kind == core.TransitionStaleDropped })
	snap, _ = h.c.Snapshot(ctx)
	if snap.State.Status != core.StatusIdle {
		t.Fatalf("expected stale success ignored, got %v", snap.State.Status)
	}
}

func TestController_SyncRejection(t *testing.T) {
	ctx := context.Background()
	h := startController(t, WithLanguage("en-US"))
	_, _ = h.c.SetPhoneNumber(ctx, "12345")
	snap, err := h.c.SendCode(ctx)
	if !errors.Is(err, core.ErrInvalidPhoneFormat) {
		t.Fatalf("expected invalid phone, got %v", err)
	}
	if snap.State.Status != core.StatusIdle || snap.State.SendAttempts != 0 {
		t.Fatalf("rejection changed state: %+v", snap.State)
	}
	if snap.ErrorText != "Invalid phone number format" {
		t.Fatalf("unexpected error text %q", snap.ErrorText)
	}
	select {
	case c := <-h.tr.calls:
		t.Fatalf("unexpected transport call %+v", c)
	default:
	}
}

func TestController_Timeout(t *testing.T) {
	ctx := context.Background()
	h := startController(t, WithTimeout(50*time.Millisecond))
	_, _ = h.c.SetPhoneNumber(ctx, "0912345678")
	_, _ = h.c.SendCode(ctx)
	_ = h.tr.next(t)
	snap := h.waitFor(t, "send failed", statusIs(core.StatusSendFailed))
	if core.KindOf(snap.State.LastError) != core.KindTransportFailure {
		t.Fatalf("expected transport failure, got %v", snap.State.LastError)
	}
}

func TestController_OnboardingRoutes(t *testing.T) {
	ctx := context.Background()
	h := startController(t, WithProvider(idp.NewMock()))

	snap, _ := h.c.Begin(ctx)
	if snap.Route != RouteLineAuth {
		t.Fatalf("expected line auth, got %s", snap.Route)
	}
	if _, err := h.c.Login(ctx); !errors.Is(err, ErrTermsNotAccepted) {
		t.Fatalf("expected terms required, got %v", err)
	}
	_, _ = h.c.AgreeToTerms(ctx, true)
	if u, err := h.c.Login(ctx); err != nil || u != "" {
		t.Fatalf("login: %q %v", u, err)
	}
	snap, _ = h.c.Snapshot(ctx)
	if snap.Route != RoutePhoneVerification || snap.Profile == nil || snap.Profile.UserID != "mock_user_123" {
		t.Fatalf("unexpected after login: route=%s profile=%+v", snap.Route, snap.Profile)
	}

	_, _ = h.c.SetPhoneNumber(ctx, "0912345678")
	_, _ = h.c.SendCode(ctx)
	h.tr.next(t).reply <- callResult{}
	snap = h.waitFor(t, "code screen", func(s Snapshot) bool { return s.Route == RouteVerificationCode })

	snap, _ = h.c.Back(ctx)
	if snap.Route != RoutePhoneVerification || snap.State.Status != core.StatusIdle || snap.State.PhoneNumber != "0912345678" {
		t.Fatalf("unexpected after back: route=%s state=%+v", snap.Route, snap.State)
	}

	_, _ = h.c.SendCode(ctx)
	h.tr.next(t).reply <- callResult{}
	h.waitFor(t, "code screen", func(s Snapshot) bool { return s.Route == RouteVerificationCode })
	_, _ = h.c.EnterCode(ctx, "654321")
	_, _ = h.c.VerifyCode(ctx)
	h.tr.next(t).reply <- callResult{ack: core.Ack{Token: "proof"}}
	snap = h.waitFor(t, "success screen", func(s Snapshot) bool { return s.Route == RouteVerificationSuccess })
	if snap.State.Status != core.StatusVerified || snap.State.Proof.Token != "proof" {
		t.Fatalf("unexpected verified state %+v", snap.State)
	}
	if h.ticker.Running() {
		t.Fatalf("expected ticker stopped after verification")
	}
	if _, err := h.c.SetDigit(ctx, 0, "1"); !errors.Is(err, core.ErrSessionVerified) {
		t.Fatalf("expected verified session to reject edits, got %v", err)
	}
}

func TestController_ClosedRejectsCommands(t *testing.T) {
	c := New(newFakeTransport(), WithTicker(clock.NewManual()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = c.Run(ctx)
	if _, err := c.Snapshot(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
