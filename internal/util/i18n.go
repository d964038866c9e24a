package util

import (
	"embed"
	"fmt"
	"path"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Translator 通知文案本地化
type Translator struct {
	bundle      *i18n.Bundle
	defaultLang string
}

func NewTranslator(defaultLang string) (*Translator, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", defaultLang, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		data, err := localeFS.ReadFile(path.Join("locales", e.Name()))
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return nil, fmt.Errorf("load locale %s: %w", e.Name(), err)
		}
	}

	return &Translator{bundle: bundle, defaultLang: defaultLang}, nil
}

// Localize 按用户语言翻译，找不到时回退到默认语言
func (t *Translator) Localize(lang, messageID string, data map[string]interface{}) (string, error) {
	loc := i18n.NewLocalizer(t.bundle, lang, t.defaultLang)
	return loc.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
}

func (t *Translator) Languages() []string {
	tags := t.bundle.LanguageTags()
	langs := make([]string, 0, len(tags))
	for _, tag := range tags {
		langs = append(langs, tag.String())
	}
	return langs
}
