package lang

import (
	"context"
	"testing"

	"github.com/PaulFidika/otpkit/core"
)

func TestMatch(t *testing.T) {
	cases := map[string]string{
		"":                      "zh-TW",
		"en":                    "en-US",
		"en-GB,en;q=0.9":        "en-US",
		"zh-CN":                 "zh-CN",
		"fr-FR,fr;q=0.9":        "zh-TW",
		"fr-FR,en-US;q=0.8":     "en-US",
		"not a language tag!!!": "zh-TW",
	}
	for in, want := range cases {
		if got := Match(in); got != want {
			t.Fatalf("Match(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMessage(t *testing.T) {
	if got := Message("en-US", core.ErrInvalidCode); got != "Incorrect verification code" {
		t.Fatalf("unexpected english message %q", got)
	}
	if got := Message("zh-TW", &core.Error{Kind: core.KindInvalidCode, Message: "wrong"}); got != "驗證碼不正確" {
		t.Fatalf("unexpected zh-TW message %q", got)
	}
	if got := Message("en-US", core.TransportFailure("rate_limited")); got != "rate_limited" {
		t.Fatalf("expected transport message kept, got %q", got)
	}
	if got := Message("en-US", nil); got != "" {
		t.Fatalf("expected empty for nil, got %q", got)
	}
}

func TestMessage_CatalogComplete(t *testing.T) {
	kinds := []core.ErrorKind{
		core.KindInvalidPhoneFormat, core.KindIncompleteCode, core.KindInvalidCode,
		core.KindResendNotYetAllowed, core.KindTooManyAttempts, core.KindTransportFailure,
		core.KindSessionVerified, core.KindInvalidTransition,
	}
	for _, l := range Supported() {
		for _, k := range kinds {
			if got := Message(l, &core.Error{Kind: k}); got == "" || got == string(k) {
				t.Fatalf("%s: no message for %s", l, k)
			}
		}
	}
	if got := Message("zh-CN", core.ErrTooManyAttempts); got != "验证次数过多，请重新开始" {
		t.Fatalf("unexpected zh-CN message %q", got)
	}
	if got := Message("fr-FR", core.ErrInvalidCode); got != "驗證碼不正確" {
		t.Fatalf("expected default language fallback, got %q", got)
	}
	if got := Message("en-US", &core.Error{Kind: "unknown_kind", Message: "raw text"}); got != "raw text" {
		t.Fatalf("expected unknown kind to keep its text, got %q", got)
	}
}

func TestSupported(t *testing.T) {
	got := Supported()
	if len(got) != 3 || got[0] != Default || got[1] != "zh-CN" || got[2] != "en-US" {
		t.Fatalf("unexpected supported languages %v", got)
	}
}

func TestLanguageContext(t *testing.T) {
	ctx := WithLanguage(context.Background(), "en-US")
	if l, ok := LanguageFromContext(ctx); !ok || l != "en-US" {
		t.Fatalf("expected en-US, got %q %v", l, ok)
	}
	if _, ok := LanguageFromContext(context.Background()); ok {
		t.Fatalf("expected no language on empty context")
	}
}
