// Package i18n translates message keys into display text.
//
// Texts are registered in a golang.org/x/text catalog. A Catalog picks the
// best supported language for an Accept-Language header and returns a
// Translator bound to it. Keys without an entry translate to themselves.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Translator maps a message key to display text.
type Translator interface {
	Translate(key string) string
}

// Catalog holds the texts of every supported language.
type Catalog struct {
	builder   *catalog.Builder
	matcher   language.Matcher
	supported []language.Tag // default language first
	known     map[string]bool
}

// NewCatalog builds the catalog with defaultLang preferred when a request
// states no acceptable language. defaultLang must be a supported language.
func NewCatalog(defaultLang string) (*Catalog, error) {
	fallback, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse default language %q: %w", defaultLang, err)
	}

	var supported []language.Tag
	for _, t := range texts {
		if t.tag.String() == fallback.String() {
			fallback = t.tag
			supported = append([]language.Tag{t.tag}, supported...)
			continue
		}
		supported = append(supported, t.tag)
	}
	if supported[0] != fallback {
		return nil, fmt.Errorf("default language %q is not supported", defaultLang)
	}

	b := catalog.NewBuilder(catalog.Fallback(fallback))
	known := make(map[string]bool)
	for _, t := range texts {
		for key, text := range t.messages {
			if err := b.SetString(t.tag, key, text); err != nil {
				return nil, fmt.Errorf("register %s/%s: %w", t.tag, key, err)
			}
			known[key] = true
		}
	}

	return &Catalog{
		builder:   b,
		matcher:   language.NewMatcher(supported),
		supported: supported,
		known:     known,
	}, nil
}

// MustCatalog is like NewCatalog but panics on error.
func MustCatalog(defaultLang string) *Catalog {
	c, err := NewCatalog(defaultLang)
	if err != nil {
		panic(err)
	}
	return c
}

// For returns a Printer for the best match of an Accept-Language header.
// Malformed or empty headers select the default language.
func (c *Catalog) For(acceptLanguage string) *Printer {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return c.printer(c.supported[0])
	}
	_, idx, _ := c.matcher.Match(tags...)
	return c.printer(c.supported[idx])
}

// Languages lists the supported languages, default first.
func (c *Catalog) Languages() []language.Tag {
	return append([]language.Tag(nil), c.supported...)
}

func (c *Catalog) printer(tag language.Tag) *Printer {
	return &Printer{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(c.builder)),
		known:   c.known,
	}
}

// Printer translates keys into one language.
type Printer struct {
	tag     language.Tag
	printer *message.Printer
	known   map[string]bool
}

var _ Translator = (*Printer)(nil)

// Language returns the language the printer renders.
func (p *Printer) Language() language.Tag { return p.tag }

// Translate returns the text for key, or key itself when it has no entry.
func (p *Printer) Translate(key string) string {
	if !p.known[key] {
		return key
	}
	return p.printer.Sprintf(key)
}
