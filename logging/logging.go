// Package logging adapts logrus to the event and scheduler logging
// interfaces used across otpkit.
package logging

import (
	"context"
	"os"
	"strings"

	"github.com/PaulFidika/otpkit/core"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing JSON or text to stderr at the given level.
func New(level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lv, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lv = logrus.InfoLevel
	}
	l.SetLevel(lv)
	return l
}

// EventLogger writes verification events as structured logrus entries.
type EventLogger struct {
	log logrus.FieldLogger
}

var _ core.EventLogger = (*EventLogger)(nil)

func NewEventLogger(log logrus.FieldLogger) *EventLogger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EventLogger{log: log}
}

func (l *EventLogger) LogEvent(_ context.Context, ev core.Event) error {
	fields := logrus.Fields{
		"event":      string(ev.Name),
		"session_id": ev.SessionID,
		"phone":      ev.Phone,
		"status":     ev.Status.String(),
	}
	if ev.RequestID != 0 {
		fields["request_id"] = ev.RequestID
	}
	if ev.Attempt != 0 {
		fields["attempt"] = ev.Attempt
	}
	if !ev.At.IsZero() {
		fields["at"] = ev.At.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}
	entry := l.log.WithFields(fields)
	if ev.Err != nil {
		entry = entry.WithError(ev.Err)
	}
	switch ev.Name {
	case core.EventSendFailed:
		entry.Error("verification code sending failed")
	case core.EventVerifyFailed:
		entry.Warn("verification code rejected")
	case core.EventLocked:
		entry.Warn("verification locked after too many attempts")
	case core.EventStaleDropped, core.EventCooldownFinished:
		entry.Debug(strings.ReplaceAll(string(ev.Name), "_", " "))
	default:
		entry.Info(strings.ReplaceAll(string(ev.Name), "_", " "))
	}
	return nil
}

// CronLogger satisfies cron.Logger on top of logrus.
type CronLogger struct {
	log logrus.FieldLogger
}

func NewCronLogger(log logrus.FieldLogger) CronLogger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return CronLogger{log: log}
}

func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.WithFields(kvFields(keysAndValues)).WithError(err).Error(msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		f[k] = kv[i+1]
	}
	return f
}
