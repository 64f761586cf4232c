package otpgin

import (
	"strings"

	otplang "github.com/PaulFidika/otpkit/lang"
	"github.com/gin-gonic/gin"
)

type LanguageConfig struct {
	QueryParam string
	CookieName string
}

func (c *LanguageConfig) defaulted() LanguageConfig {
	if c == nil {
		return LanguageConfig{QueryParam: "lang", CookieName: "aicard_language"}
	}
	out := *c
	if strings.TrimSpace(out.QueryParam) == "" {
		out.QueryParam = "lang"
	}
	if strings.TrimSpace(out.CookieName) == "" {
		out.CookieName = "aicard_language"
	}
	return out
}

// resolveRequestLanguage picks the first explicit choice in order
// `?lang` > cookie > `Accept-Language`, matched against the supported set.
func resolveRequestLanguage(c *gin.Context, cfg LanguageConfig) string {
	var prefs []string
	if qp := strings.TrimSpace(c.Query(cfg.QueryParam)); qp != "" {
		prefs = append(prefs, qp)
	}
	if cfg.CookieName != "" {
		if cv, err := c.Cookie(cfg.CookieName); err == nil && strings.TrimSpace(cv) != "" {
			prefs = append(prefs, cv)
		}
	}
	if al := strings.TrimSpace(c.GetHeader("Accept-Language")); al != "" {
		prefs = append(prefs, al)
	}
	for _, p := range prefs {
		if m := otplang.MatchStrict(p); m != "" {
			return m
		}
	}
	return otplang.Default
}

// LanguageMiddleware infers request language and attaches it to the request context.
func LanguageMiddleware(cfg *LanguageConfig) gin.HandlerFunc {
	c := cfg.defaulted()
	return func(g *gin.Context) {
		lang := resolveRequestLanguage(g, c)
		g.Set("otpkit.language", lang)
		g.Request = g.Request.WithContext(otplang.WithLanguage(g.Request.Context(), lang))
		g.Next()
	}
}
