package core

import (
	"regexp"
	"time"
)

// DefaultPhonePattern matches local mobile numbers with a 09 trunk prefix
// followed by eight digits.
const DefaultPhonePattern = `^09\d{8}$`

// Config holds the verification policy. Zero values fall back to defaults.
type Config struct {
	PhonePattern      *regexp.Regexp
	CodeLength        int
	ResendCooldown    time.Duration
	MaxVerifyAttempts int
}

var defaultPhoneRe = regexp.MustCompile(DefaultPhonePattern)

// DefaultConfig returns the policy used by the onboarding flow.
func DefaultConfig() Config {
	return Config{
		PhonePattern:      defaultPhoneRe,
		CodeLength:        6,
		ResendCooldown:    60 * time.Second,
		MaxVerifyAttempts: 5,
	}
}

func (c Config) defaulted() Config {
	d := DefaultConfig()
	if c.PhonePattern == nil {
		c.PhonePattern = d.PhonePattern
	}
	if c.CodeLength <= 0 {
		c.CodeLength = d.CodeLength
	}
	if c.ResendCooldown <= 0 {
		c.ResendCooldown = d.ResendCooldown
	}
	if c.MaxVerifyAttempts <= 0 {
		c.MaxVerifyAttempts = d.MaxVerifyAttempts
	}
	return c
}

// Defaulted returns c with every unset field replaced by its default.
func (c Config) Defaulted() Config { return c.defaulted() }

// CooldownSeconds is the resend cooldown in whole seconds, rounded up.
func (c Config) CooldownSeconds() int {
	c = c.defaulted()
	secs := int(c.ResendCooldown / time.Second)
	if c.ResendCooldown%time.Second != 0 {
		secs++
	}
	return secs
}

// ValidPhone reports whether phone matches the configured pattern.
func (c Config) ValidPhone(phone string) bool {
	c = c.defaulted()
	return phone != "" && c.PhonePattern.MatchString(phone)
}
