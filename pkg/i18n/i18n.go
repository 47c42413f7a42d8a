package i18n

import (
	"embed"
	"encoding/json"
	"path"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"go.uber.org/zap"

	"AlsitoQC/pkg/logger"
)

// Message IDs
const (
	LocationRequired         = "LocationRequired"
	LocationTooShort         = "LocationTooShort"
	LocationFetching         = "LocationFetching"
	LocationServicesDisabled = "LocationServicesDisabled"
	LocationPermissionDenied = "LocationPermissionDenied"
	LocationTimeout          = "LocationTimeout"
	LocationUnavailable      = "LocationUnavailable"
	LoginMissingCredentials  = "LoginMissingCredentials"
	LoginInvalidCredentials  = "LoginInvalidCredentials"
	LoginAccountNotApproved  = "LoginAccountNotApproved"
	LoginConnectionFailed    = "LoginConnectionFailed"
	LoginUnexpected          = "LoginUnexpected"
	LoginErrorPrefix         = "LoginErrorPrefix"
	ReportingHeadline        = "ReportingHeadline"
	ReportingAddressFallback = "ReportingAddressFallback"
	DispatchHeadline         = "DispatchHeadline"
	DispatchETA              = "DispatchETA"
	DetailsAcknowledged      = "DetailsAcknowledged"
	ArrivalAcknowledged      = "ArrivalAcknowledged"
)

//go:embed locales/*.json
var locales embed.FS

// Messages renders one message in a fixed language.
type Messages interface {
	Message(id string, data map[string]interface{}) string
}

// I18nSupport 国际化支持结构体
type I18nSupport struct {
	bundle *i18n.Bundle
}

// NewI18nSupport loads the embedded catalogues with defaultLang as the
// fallback language.
func NewI18nSupport(defaultLang string) (*I18nSupport, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, err
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		p := path.Join("locales", e.Name())
		buf, err := locales.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(buf, p); err != nil {
			return nil, err
		}
	}
	return &I18nSupport{bundle: bundle}, nil
}

var (
	defaultOnce sync.Once
	defaultI18n *I18nSupport
)

// Default returns the English-fallback catalogue.
func Default() *I18nSupport {
	defaultOnce.Do(func() {
		s, err := NewI18nSupport("en")
		if err != nil {
			// embedded files are part of the build
			panic(err)
		}
		defaultI18n = s
	})
	return defaultI18n
}

// T 获取翻译文本; unknown IDs render as the ID itself.
func (i *I18nSupport) T(languageTag, key string, templateData map[string]interface{}) string {
	localizer := i18n.NewLocalizer(i.bundle, languageTag)
	translation, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: templateData,
	})
	if err != nil {
		logger.Warn("translation missing", zap.String("key", key), zap.String("lang", languageTag), zap.Error(err))
		return key
	}
	return translation
}

// For binds a language, accepting Accept-Language style lists.
func (i *I18nSupport) For(langs ...string) Messages {
	return localized{i: i, langs: langs}
}

type localized struct {
	i     *I18nSupport
	langs []string
}

func (l localized) Message(id string, data map[string]interface{}) string {
	localizer := i18n.NewLocalizer(l.i.bundle, l.langs...)
	translation, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		logger.Warn("translation missing", zap.String("key", id), zap.Error(err))
		return id
	}
	return translation
}
