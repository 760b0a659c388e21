// Package speech holds what the input and output adapters share: the
// language-to-locale table and the unsupported-capability error.
package speech

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultLocale is used for any language without a table entry.
const DefaultLocale = "en-IN"

var locales = map[string]string{
	"en": "en-IN",
	"hi": "hi-IN",
	"te": "te-IN",
	"ta": "ta-IN",
	"mr": "mr-IN",
	"kn": "kn-IN",
	"ml": "ml-IN",
}

var languageNames = map[string]string{
	"en": "English",
	"hi": "Hindi",
	"te": "Telugu",
	"ta": "Tamil",
	"mr": "Marathi",
	"kn": "Kannada",
	"ml": "Malayalam",
}

// LocaleFor maps a two-letter application language to a speech locale.
func LocaleFor(lang string) string {
	if l, ok := locales[strings.ToLower(strings.TrimSpace(lang))]; ok {
		return l
	}
	return DefaultLocale
}

// Language is one selectable application language.
type Language struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Locale string `json:"locale"`
}

// Languages returns the supported languages sorted by code.
func Languages() []Language {
	out := make([]Language, 0, len(locales))
	for code, loc := range locales {
		out = append(out, Language{Code: code, Name: languageNames[code], Locale: loc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// IsKnownLanguage reports whether lang has a table entry.
func IsKnownLanguage(lang string) bool {
	_, ok := locales[strings.ToLower(strings.TrimSpace(lang))]
	return ok
}

// UnsupportedError reports that the host lacks a speech capability.
type UnsupportedError struct {
	Capability string // "speech input" or "speech output"
	Reason     string
}

func (e *UnsupportedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is not supported on this host", e.Capability)
	}
	return fmt.Sprintf("%s is not supported on this host: %s", e.Capability, e.Reason)
}

// IsUnsupported reports whether err is an UnsupportedError.
func IsUnsupported(err error) bool {
	var ue *UnsupportedError
	return errors.As(err, &ue)
}
