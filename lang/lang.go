package lang

import (
	"context"

	"golang.org/x/text/language"
)

type ctxKey struct{}

// WithLanguage attaches a request language to ctx.
func WithLanguage(ctx context.Context, language string) context.Context {
	return context.WithValue(ctx, ctxKey{}, language)
}

// LanguageFromContext reads a request language from ctx.
func LanguageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxKey{})
	s, ok := v.(string)
	return s, ok && s != ""
}

// Supported languages, default first.
var (
	TraditionalChinese = language.MustParse("zh-TW")
	SimplifiedChinese  = language.MustParse("zh-CN")
	English            = language.MustParse("en-US")

	supported = []language.Tag{TraditionalChinese, SimplifiedChinese, English}
	matcher   = language.NewMatcher(supported)
)

// Default is the fallback language.
const Default = "zh-TW"

// Supported returns the canonical supported language codes.
func Supported() []string {
	out := make([]string, 0, len(supported))
	for _, t := range supported {
		out = append(out, t.String())
	}
	return out
}

// Match picks the best supported language for the given preferences
// (BCP 47 tags or Accept-Language values). Unknown input yields Default.
func Match(prefs ...string) string {
	if m := MatchStrict(prefs...); m != "" {
		return m
	}
	return Default
}

// MatchStrict is Match without the fallback: it returns "" when nothing in
// prefs is close to a supported language.
func MatchStrict(prefs ...string) string {
	var tags []language.Tag
	for _, p := range prefs {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return ""
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return ""
	}
	return supported[idx].String()
}
