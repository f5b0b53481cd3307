package transform

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// dateLayouts mirrors the short numeric date each locale renders.
// The first entry is the fallback.
var dateLayouts = []struct {
	tag    language.Tag
	layout string
}{
	{language.AmericanEnglish, "1/2/2006"},
	{language.BritishEnglish, "02/01/2006"},
	{language.BrazilianPortuguese, "02/01/2006"},
	{language.EuropeanPortuguese, "02/01/2006"},
	{language.Spanish, "2/1/2006"},
	{language.French, "02/01/2006"},
	{language.German, "2.1.2006"},
	{language.Italian, "2/1/2006"},
	{language.Dutch, "2-1-2006"},
	{language.Russian, "02.01.2006"},
	{language.Japanese, "2006/1/2"},
	{language.Chinese, "2006/1/2"},
	{language.Korean, "2006. 1. 2."},
}

var dateMatcher = func() language.Matcher {
	tags := make([]language.Tag, len(dateLayouts))
	for i, l := range dateLayouts {
		tags[i] = l.tag
	}
	return language.NewMatcher(tags)
}()

// Formatter renders release timestamps as locale-style short dates.
type Formatter struct {
	layout   string
	location *time.Location
}

// NewFormatter builds a Formatter for a BCP-47 locale and an IANA time zone.
// Unsupported locales fall back to American English.
func NewFormatter(locale, timeZone string) (*Formatter, error) {
	locale = strings.TrimSpace(locale)
	layout := dateLayouts[0].layout
	if locale != "" {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", locale, err)
		}
		if _, idx, conf := dateMatcher.Match(tag); conf != language.No {
			layout = dateLayouts[idx].layout
		}
	}

	location := time.UTC
	if tz := strings.TrimSpace(timeZone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load time zone %q: %w", tz, err)
		}
		location = loc
	}

	return &Formatter{layout: layout, location: location}, nil
}

// DefaultFormatter renders en-US dates in UTC.
func DefaultFormatter() *Formatter {
	return &Formatter{layout: dateLayouts[0].layout, location: time.UTC}
}

// ReleaseDate formats unix seconds, or returns Unknown when absent.
func (f *Formatter) ReleaseDate(unixSeconds *int64) string {
	if unixSeconds == nil {
		return Unknown
	}
	return time.Unix(*unixSeconds, 0).In(f.location).Format(f.layout)
}
