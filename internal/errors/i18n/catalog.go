// Package i18n holds localized user-facing messages for domain error codes.
package i18n

import (
	"bytes"
	"text/template"

	"golang.org/x/text/language"
)

// Code mirrors the error code strings defined in internal/errors.
type Code = string

// Catalog maps error codes to localized message templates.
type Catalog struct {
	locale   string
	messages map[Code]string
}

var catalogs = map[string]*Catalog{
	"en-US": enUSCatalog,
}

// supported lists catalog locales in matcher order; en-US first so it
// wins as the fallback.
var supported = []string{"en-US"}

var matcher language.Matcher

func init() {
	for locale := range catalogs {
		if locale == "en-US" {
			continue
		}
		supported = append(supported, locale)
	}
	tags := make([]language.Tag, 0, len(supported))
	for _, locale := range supported {
		tags = append(tags, language.Make(locale))
	}
	matcher = language.NewMatcher(tags)
}

// GetCatalog returns the catalog best matching the requested locale,
// falling back to en-US.
func GetCatalog(locale string) *Catalog {
	_, idx := language.MatchStrings(matcher, locale)
	if idx < 0 || idx >= len(supported) {
		return enUSCatalog
	}
	return catalogs[supported[idx]]
}

// Locale returns the catalog's BCP 47 locale tag.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message template for code with the given metadata.
// Unknown codes fall back to a generic message.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	msg, ok := c.messages[code]
	if !ok {
		return c.messages[CodeUnknown]
	}
	if len(metadata) == 0 {
		return msg
	}

	tmpl, err := template.New(code).Parse(msg)
	if err != nil {
		return msg
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, metadata); err != nil {
		return msg
	}
	return buf.String()
}
