// Package flow drives a verification session from a single event loop and
// tracks the onboarding screens around it.
package flow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/PaulFidika/otpkit/clock"
	"github.com/PaulFidika/otpkit/core"
	"github.com/PaulFidika/otpkit/idp"
	otplang "github.com/PaulFidika/otpkit/lang"
	"github.com/sirupsen/logrus"
)

var (
	ErrClosed           = errors.New("flow: controller stopped")
	ErrTermsNotAccepted = errors.New("flow: terms not accepted")
	ErrNoProvider       = errors.New("flow: no identity provider")
)

// Snapshot is what observers see after every processed event.
type Snapshot struct {
	Route         Route
	State         core.State
	Transition    core.Transition
	ErrorText     string
	Rejected      error
	Language      string
	AgreedToTerms bool
	Profile       *idp.Profile
}

// Observer receives snapshots on the event loop goroutine. It must not
// call back into the controller.
type Observer func(Snapshot)

type command struct {
	fn    func() (core.Transition, error)
	reply chan commandReply
}

type commandReply struct {
	snap Snapshot
	err  error
}

type tick struct{ gen uint64 }

// Controller owns a core.Session. Run must be running for commands to be
// processed; commands block until the loop has applied them.
type Controller struct {
	session   *core.Session
	transport core.Transport
	ticker    clock.Ticker
	provider  idp.Provider
	log       logrus.FieldLogger
	language  string
	timeout   time.Duration
	observers []Observer

	sessionOpts []core.Option
	cfg         core.Config

	cmds    chan command
	results chan core.Result
	ticks   chan tick
	done    chan struct{}
	runOnce sync.Once

	// loop-owned
	runCtx   context.Context
	inflight sync.WaitGroup
	tickGen  uint64
	ticking  bool
	route    Route
	agreed   bool
	profile  *idp.Profile
}

type Option func(*Controller)

func WithConfig(cfg core.Config) Option { return func(c *Controller) { c.cfg = cfg } }

func WithTicker(t clock.Ticker) Option { return func(c *Controller) { c.ticker = t } }

func WithProvider(p idp.Provider) Option { return func(c *Controller) { c.provider = p } }

func WithLanguage(language string) Option {
	return func(c *Controller) { c.language = otplang.Match(language) }
}

// WithTimeout bounds each transport call. Defaults to 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithSessionOptions passes options through to core.NewSession.
func WithSessionOptions(opts ...core.Option) Option {
	return func(c *Controller) { c.sessionOpts = append(c.sessionOpts, opts...) }
}

func New(transport core.Transport, opts ...Option) *Controller {
	c := &Controller{
		transport: transport,
		log:       logrus.StandardLogger(),
		language:  otplang.Default,
		timeout:   30 * time.Second,
		cfg:       core.DefaultConfig(),
		cmds:      make(chan command),
		results:   make(chan core.Result),
		ticks:     make(chan tick),
		done:      make(chan struct{}),
		route:     RouteWelcome,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ticker == nil {
		c.ticker = clock.NewCron(time.Second, nil)
	}
	c.session = core.NewSession(c.cfg, c.sessionOpts...)
	return c
}

// Run processes commands, transport results and ticks until ctx is done.
// It may only be called once.
func (c *Controller) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("flow: Run called twice")
	}
	c.runCtx = ctx
	defer func() {
		c.stopTicker()
		close(c.done)
		c.inflight.Wait()
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-c.cmds:
			tr, err := cmd.fn()
			snap := c.publish(tr, err)
			cmd.reply <- commandReply{snap: snap, err: err}
		case r := <-c.results:
			tr := c.session.Resolve(r)
			c.afterTransition(tr)
			c.publish(tr, nil)
		case t := <-c.ticks:
			if t.gen != c.tickGen || !c.ticking {
				continue
			}
			tr := c.session.TickCooldown()
			if c.session.Cooldown() == 0 {
				c.stopTicker()
			}
			c.publish(tr, nil)
		}
	}
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} { return c.done }

func (c *Controller) do(ctx context.Context, fn func() (core.Transition, error)) (Snapshot, error) {
	cmd := command{fn: fn, reply: make(chan commandReply, 1)}
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	r := <-cmd.reply
	return r.snap, r.err
}

func (c *Controller) snapshot(tr core.Transition, rejected error) Snapshot {
	st := c.session.State()
	snap := Snapshot{
		Route:         c.route,
		State:         st,
		Transition:    tr,
		Rejected:      rejected,
		Language:      c.language,
		AgreedToTerms: c.agreed,
		Profile:       c.profile,
	}
	switch {
	case st.LastError != nil:
		snap.ErrorText = otplang.Message(c.language, st.LastError)
	case rejected != nil:
		var ve *core.Error
		if errors.As(rejected, &ve) {
			snap.ErrorText = otplang.Message(c.language, ve)
		} else {
			snap.ErrorText = rejected.Error()
		}
	}
	return snap
}

func (c *Controller) publish(tr core.Transition, rejected error) Snapshot {
	snap := c.snapshot(tr, rejected)
	for _, o := range c.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.WithField("panic", r).Warn("flow observer panicked")
				}
			}()
			o(snap)
		}()
	}
	return snap
}

// afterTransition applies route changes and cooldown clock control.
func (c *Controller) afterTransition(tr core.Transition) {
	switch tr.Kind {
	case core.TransitionSendStarted, core.TransitionResendStarted:
		if c.session.Cooldown() > 0 {
			c.startTicker()
		}
	case core.TransitionCodeSent:
		if c.route == RoutePhoneVerification {
			c.route = RouteVerificationCode
		}
	case core.TransitionVerified:
		c.route = RouteVerificationSuccess
		c.stopTicker()
	case core.TransitionReset:
		c.stopTicker()
	}
}

func (c *Controller) startTicker() {
	if c.ticking {
		return
	}
	c.tickGen++
	gen := c.tickGen
	err := c.ticker.Start(func() {
		select {
		case c.ticks <- tick{gen: gen}:
		case <-c.done:
		}
	})
	if err != nil {
		c.log.WithError(err).Error("failed to start cooldown ticker")
		return
	}
	c.ticking = true
}

func (c *Controller) stopTicker() {
	if !c.ticking {
		return
	}
	c.ticker.Stop()
	c.ticking = false
	c.tickGen++
}

// launch performs d against the transport off the loop and posts the result back.
func (c *Controller) launch(d core.Dispatch) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ctx, cancel := context.WithTimeout(c.runCtx, c.timeout)
		defer cancel()
		res := core.Result{Op: d.Op, RequestID: d.RequestID}
		switch d.Op {
		case core.OpSend:
			res.Ack, res.Err = c.transport.SendVerificationCode(ctx, d.Phone)
		case core.OpVerify:
			res.Ack, res.Err = c.transport.VerifyCode(ctx, d.Phone, d.Code)
		}
		if res.Err == nil && ctx.Err() != nil {
			res.Err = core.TransportFailure(ctx.Err().Error())
		}
		select {
		case c.results <- res:
		case <-c.done:
		}
	}()
}

func (c *Controller) dispatch(d core.Dispatch, err error) (core.Transition, error) {
	if err != nil {
		return core.Transition{}, err
	}
	c.afterTransition(d.Transition)
	c.launch(d)
	return d.Transition, nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, func() (core.Transition, error) { return core.Transition{}, nil })
}

func (c *Controller) SetPhoneNumber(ctx context.Context, phone string) (Snapshot, error) {
	return c.do(ctx, func() (core.Transition, error) { return c.session.SetPhoneNumber(phone) })
}

func (c *Controller) SendCode(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, func() (core.Transition, error) { return c.dispatch(c.session.SendCode()) })
}

func (c *Controller) ResendCode(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, func() (core.Transition, error) { return c.dispatch(c.session.ResendCode()) })
}

func (c *Controller) SetDigit(ctx context.Context, i int, value string) (Snapshot, error) {
	return c.do(ctx, func() (core.Transition, error) { return c.session.SetDigit(i, value) })
}

func (c *Controller) Backspace(ctx context.Context, i int) (Snapshot, error) {
	return c.do(ctx, func() (core.Transition, error) { return c.session.Backspace(i) })
}

func (c *Controller) Focus(ctx context.Context, i int) (Snapshot, error) {
	return c.do(ctx, func() (core.Transition, error) { return c.session.SetFocus(i), nil })
}

// EnterCode fills cells from the start of code, one SetDigit per character.
func (c *Controller) EnterCode(ctx context.Context, code string) (Snapshot, error) {
	return c.do(ctx, func() (core.Transition, error) {
		var last core.Transition
		i := 0
		for _, r := range code {
			if i >= c.session.Entry().Len() {
				break
			}
			tr, err := c.session.SetDigit(i, string(r))
			if err != nil {
				return last, err
			}
			last = tr
			i++
		}
		return last, nil
	})
}

func (c *Controller) VerifyCode(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, func() (core.Transition, error) { return c.dispatch(c.session.VerifyCode()) })
}

func (c *Controller) Reset(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, func() (core.Transition, error) {
		tr := c.session.Reset()
		c.afterTransition(tr)
		return tr, nil
	})
}

// Begin leaves the welcome screen for the consent screen.
func (c *Controller) Begin(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, func() (core.Transition, error) {
		if c.route == RouteWelcome {
			c.route = RouteLineAuth
		}
		return core.Transition{}, nil
	})
}

func (c *Controller) AgreeToTerms(ctx context.Context, agreed bool) (Snapshot, error) {
	return c.do(ctx, func() (core.Transition, error) {
		c.agreed = agreed
		return core.Transition{}, nil
	})
}

// Back returns to the previous screen. Leaving the code screen resets the
// session but keeps the phone number.
func (c *Controller) Back(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, func() (core.Transition, error) {
		prev, ok := backRoutes[c.route]
		if !ok {
			return core.Transition{}, nil
		}
		var tr core.Transition
		if c.route == RouteVerificationCode {
			tr = c.session.Reset()
			c.afterTransition(tr)
		}
		c.route = prev
		return tr, nil
	})
}

// Login starts identity provider login once terms are accepted. It returns
// the URL to visit, or "" when the provider logged in directly, in which
// case the flow moves on to phone entry.
func (c *Controller) Login(ctx context.Context) (string, error) {
	if c.provider == nil {
		return "", ErrNoProvider
	}
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	if !snap.AgreedToTerms {
		_, _ = c.do(ctx, func() (core.Transition, error) { return core.Transition{}, ErrTermsNotAccepted })
		return "", ErrTermsNotAccepted
	}
	if err := c.provider.Initialize(ctx); err != nil {
		return "", err
	}
	authURL, err := c.provider.Login(ctx)
	if err != nil {
		return "", err
	}
	if authURL != "" {
		return authURL, nil
	}
	return "", c.finishLogin(ctx)
}

// CompleteLogin finishes a redirect login.
func (c *Controller) CompleteLogin(ctx context.Context, state, code string) error {
	if c.provider == nil {
		return ErrNoProvider
	}
	if err := c.provider.Complete(ctx, state, code); err != nil {
		return err
	}
	return c.finishLogin(ctx)
}

func (c *Controller) finishLogin(ctx context.Context) error {
	prof, err := c.provider.GetProfile(ctx)
	if err != nil {
		c.log.WithError(err).Warn("identity profile unavailable")
	}
	_, err = c.do(ctx, func() (core.Transition, error) {
		if prof.UserID != "" {
			p := prof
			c.profile = &p
		}
		c.route = RoutePhoneVerification
		return core.Transition{}, nil
	})
	return err
}

// Logout signs out of the identity provider and restarts the flow.
func (c *Controller) Logout(ctx context.Context) error {
	if c.provider != nil {
		if err := c.provider.Logout(ctx); err != nil {
			return err
		}
	}
	_, err := c.do(ctx, func() (core.Transition, error) {
		tr := c.session.Reset()
		c.afterTransition(tr)
		c.profile = nil
		c.agreed = false
		c.route = RouteWelcome
		return tr, nil
	})
	return err
}
