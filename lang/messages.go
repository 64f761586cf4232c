package lang

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/PaulFidika/otpkit/core"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

//go:embed locales/*.json
var localeFS embed.FS

var (
	bundle     *i18n.Bundle
	localizers = map[string]*i18n.Localizer{}
)

func init() {
	bundle = i18n.NewBundle(TraditionalChinese)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	for _, canonical := range Supported() {
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+canonical+".json"); err != nil {
			panic(fmt.Sprintf("lang: load %s messages: %v", canonical, err))
		}
		localizers[canonical] = i18n.NewLocalizer(bundle, canonical)
	}
}

// Message returns the localized text for a verification error, keyed by
// its kind. Transport failures keep the collaborator's message when it has
// one.
func Message(language string, err *core.Error) string {
	if err == nil {
		return ""
	}
	if err.Kind == core.KindTransportFailure && err.Message != "" && err.Message != core.ErrTransportFailure.Message {
		return err.Message
	}
	loc, ok := localizers[Match(language)]
	if !ok {
		loc = localizers[Default]
	}
	msg, lerr := loc.Localize(&i18n.LocalizeConfig{MessageID: string(err.Kind)})
	if lerr != nil {
		return err.Error()
	}
	return msg
}
