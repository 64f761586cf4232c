// Command otpflow drives the onboarding and verification flow from a
// terminal, one command per line.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/PaulFidika/otpkit/clock"
	"github.com/PaulFidika/otpkit/config"
	"github.com/PaulFidika/otpkit/core"
	"github.com/PaulFidika/otpkit/flow"
	"github.com/PaulFidika/otpkit/idp"
	"github.com/PaulFidika/otpkit/logging"
	"github.com/PaulFidika/otpkit/transport/httpclient"
	"github.com/PaulFidika/otpkit/transport/mock"
	"github.com/sirupsen/logrus"
)

const help = `commands:
  begin | agree | login | complete <state> <code> | logout
  phone <number> | send | resend
  code <digits> | digit <i> <v> | del <i> | focus <i> | verify
  reset | back | state | quit`

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (defaults when empty)")
	useMock := flag.Bool("mock", false, "Use the offline mock transport")
	language := flag.String("lang", "", "Message language (zh-TW, zh-CN, en-US)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	log.SetOutput(os.Stderr)
	if *language == "" {
		*language = cfg.Client.Language
	}

	policy, err := cfg.Core()
	if err != nil {
		log.WithError(err).Fatal("invalid verification policy")
	}

	var transport core.Transport
	if *useMock {
		transport = &mock.Transport{Delay: time.Second, Policy: policy}
	} else {
		opts := []httpclient.Option{httpclient.WithLanguage(*language)}
		if cfg.Client.VerifyProof {
			opts = append(opts, httpclient.WithProofVerification(cfg.Server.Issuer))
		}
		transport = httpclient.New(cfg.Client.BaseURL, opts...)
	}

	var provider idp.Provider = idp.NewMock()
	if cfg.Line.ChannelID != "" {
		provider = idp.NewLineProvider(idp.LineConfig{
			ChannelID:     cfg.Line.ChannelID,
			ChannelSecret: cfg.Line.ChannelSecret,
			RedirectURI:   cfg.Line.RedirectURI,
		})
	}

	ctrl := flow.New(transport,
		flow.WithConfig(policy),
		flow.WithLanguage(*language),
		flow.WithTimeout(cfg.Client.Timeout),
		flow.WithLogger(log),
		flow.WithProvider(provider),
		flow.WithTicker(clock.NewCron(time.Second, logging.NewCronLogger(log))),
		flow.WithSessionOptions(core.WithEventLogger(logging.NewEventLogger(log))),
		flow.WithObserver(printAsync),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() { _ = ctrl.Run(ctx) }()

	fmt.Println(help)
	if err := repl(ctx, ctrl, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("otpflow stopped")
	}
	stop()
	<-ctrl.Done()
}

// printAsync reports asynchronous outcomes; command replies are printed by
// the REPL itself.
func printAsync(s flow.Snapshot) {
	switch s.Transition.Kind {
	case core.TransitionCodeSent, core.TransitionSendFailed, core.TransitionVerified,
		core.TransitionVerifyFailed, core.TransitionLocked, core.TransitionCooldownFinished:
		fmt.Println(render(s))
	}
}

func render(s flow.Snapshot) string {
	st := s.State
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] status=%s phone=%s code=%s focus=%d",
		s.Route, st.Status, core.MaskPhone(st.PhoneNumber), cells(st.Digits), st.Focus)
	if st.ResendCooldownSeconds > 0 {
		fmt.Fprintf(&b, " resend_in=%ds", st.ResendCooldownSeconds)
	}
	if st.Locked {
		b.WriteString(" locked")
	}
	if s.Profile != nil {
		fmt.Fprintf(&b, " user=%s", s.Profile.DisplayName)
	}
	if s.ErrorText != "" {
		fmt.Fprintf(&b, " error=%q", s.ErrorText)
	}
	return b.String()
}

func cells(digits []string) string {
	out := make([]string, len(digits))
	for i, d := range digits {
		if d == "" {
			d = "_"
		}
		out[i] = d
	}
	return strings.Join(out, "")
}

func repl(ctx context.Context, ctrl *flow.Controller, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		snap, err := runCommand(ctx, ctrl, fields, out)
		if errors.Is(err, flow.ErrClosed) {
			return err
		}
		if err != nil && snap.ErrorText == "" {
			fmt.Fprintln(out, "error:", err)
		}
		if snap.Route != "" {
			fmt.Fprintln(out, render(snap))
		}
	}
}

func runCommand(ctx context.Context, ctrl *flow.Controller, f []string, out io.Writer) (flow.Snapshot, error) {
	arg := func(i int) string {
		if i < len(f) {
			return f[i]
		}
		return ""
	}
	idx := func(i int) (int, error) {
		n, err := strconv.Atoi(arg(i))
		if err != nil {
			return 0, fmt.Errorf("usage: %s <cell 0-based>", f[0])
		}
		return n, nil
	}
	switch f[0] {
	case "begin":
		return ctrl.Begin(ctx)
	case "agree":
		return ctrl.AgreeToTerms(ctx, true)
	case "login":
		u, err := ctrl.Login(ctx)
		if err == nil && u != "" {
			fmt.Fprintln(out, "open:", u)
		}
		if err != nil {
			return flow.Snapshot{}, err
		}
		return ctrl.Snapshot(ctx)
	case "complete":
		if err := ctrl.CompleteLogin(ctx, arg(1), arg(2)); err != nil {
			return flow.Snapshot{}, err
		}
		return ctrl.Snapshot(ctx)
	case "logout":
		if err := ctrl.Logout(ctx); err != nil {
			return flow.Snapshot{}, err
		}
		return ctrl.Snapshot(ctx)
	case "phone":
		return ctrl.SetPhoneNumber(ctx, arg(1))
	case "send":
		return ctrl.SendCode(ctx)
	case "resend":
		return ctrl.ResendCode(ctx)
	case "code":
		return ctrl.EnterCode(ctx, arg(1))
	case "digit", "del", "focus":
		i, err := idx(1)
		if err != nil {
			return flow.Snapshot{}, err
		}
		switch f[0] {
		case "digit":
			return ctrl.SetDigit(ctx, i, arg(2))
		case "del":
			return ctrl.Backspace(ctx, i)
		}
		return ctrl.Focus(ctx, i)
	case "verify":
		return ctrl.VerifyCode(ctx)
	case "reset":
		return ctrl.Reset(ctx)
	case "back":
		return ctrl.Back(ctx)
	case "state":
		return ctrl.Snapshot(ctx)
	default:
		fmt.Fprintln(out, help)
		return flow.Snapshot{}, nil
	}
}
