// Package config loads otpkit settings from YAML.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/PaulFidika/otpkit/core"
	"gopkg.in/yaml.v3"
)

type VerificationConfig struct {
	PhonePattern      string        `yaml:"phone_pattern"`
	CodeLength        int           `yaml:"code_length"`
	ResendCooldown    time.Duration `yaml:"resend_cooldown"`
	MaxVerifyAttempts int           `yaml:"max_verify_attempts"`
	CodeTTL           time.Duration `yaml:"code_ttl"`
}

type ServerConfig struct {
	Addr   string `yaml:"addr"`
	Issuer string `yaml:"issuer"`
	KeyID  string `yaml:"key_id"`
	// PrivateKeyFile is a PEM RSA key; empty generates an ephemeral key.
	PrivateKeyFile string `yaml:"private_key_file"`
	// ProofTTL is the lifetime of phone proof tokens.
	ProofTTL time.Duration `yaml:"proof_ttl"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type PostgresConfig struct {
	DSN     string `yaml:"dsn"`
	Schema  string `yaml:"schema"`
	Migrate bool   `yaml:"migrate"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type LineConfig struct {
	ChannelID     string `yaml:"channel_id"`
	ChannelSecret string `yaml:"channel_secret"`
	RedirectURI   string `yaml:"redirect_uri"`
}

type ClientConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	VerifyProof bool          `yaml:"verify_proof"`
	Language    string        `yaml:"language"`
}

type Config struct {
	Verification VerificationConfig `yaml:"verification"`
	Server       ServerConfig       `yaml:"server"`
	Redis        RedisConfig        `yaml:"redis"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Log          LogConfig          `yaml:"log"`
	Line         LineConfig         `yaml:"line"`
	Client       ClientConfig       `yaml:"client"`
}

// Load reads and decodes path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if strings.TrimSpace(path) != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %s: %w", path, err)
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	out := cfg.defaulted()
	if _, err := out.Core(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Parse decodes YAML bytes.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	out := cfg.defaulted()
	if _, err := out.Core(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c Config) defaulted() Config {
	def := core.DefaultConfig()
	v := &c.Verification
	if strings.TrimSpace(v.PhonePattern) == "" {
		v.PhonePattern = core.DefaultPhonePattern
	}
	if v.CodeLength <= 0 {
		v.CodeLength = def.CodeLength
	}
	if v.ResendCooldown <= 0 {
		v.ResendCooldown = def.ResendCooldown
	}
	if v.MaxVerifyAttempts <= 0 {
		v.MaxVerifyAttempts = def.MaxVerifyAttempts
	}
	if v.CodeTTL <= 0 {
		v.CodeTTL = 5 * time.Minute
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Issuer == "" {
		c.Server.Issuer = "otpkit"
	}
	if c.Server.KeyID == "" {
		c.Server.KeyID = "otpkit-1"
	}
	if c.Server.ProofTTL <= 0 {
		c.Server.ProofTTL = 15 * time.Minute
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "otp:"
	}
	if c.Postgres.Schema == "" {
		c.Postgres.Schema = "profiles"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = "http://localhost:8080"
	}
	if c.Client.Timeout <= 0 {
		c.Client.Timeout = 30 * time.Second
	}
	if c.Client.Language == "" {
		c.Client.Language = "zh-TW"
	}
	return c
}

// Core converts the verification section into the state machine policy.
func (c Config) Core() (core.Config, error) {
	re, err := regexp.Compile(c.Verification.PhonePattern)
	if err != nil {
		return core.Config{}, fmt.Errorf("config: phone_pattern: %w", err)
	}
	return core.Config{
		PhonePattern:      re,
		CodeLength:        c.Verification.CodeLength,
		ResendCooldown:    c.Verification.ResendCooldown,
		MaxVerifyAttempts: c.Verification.MaxVerifyAttempts,
	}.Defaulted(), nil
}
