// Package textnorm turns raw tender and supplier text into canonical, stopword-free token streams.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a pure text normalizer. It is safe for concurrent use once constructed.
type Normalizer struct {
	lang      language.Tag
	stopwords map[string]struct{}
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithStopwords replaces the stopword list. An empty list disables stopword removal.
func WithStopwords(words []string) Option {
	return func(n *Normalizer) {
		n.stopwords = make(map[string]struct{}, len(words))
		n.addStopwords(words)
	}
}

// WithExtraStopwords adds words to the current stopword list.
func WithExtraStopwords(words []string) Option {
	return func(n *Normalizer) {
		n.addStopwords(words)
	}
}

// WithLanguage sets the casing rules used for lower-casing. Default is Brazilian Portuguese.
func WithLanguage(tag language.Tag) Option {
	return func(n *Normalizer) {
		n.lang = tag
	}
}

// New creates a Normalizer with the default Portuguese stopword list.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		lang:      language.BrazilianPortuguese,
		stopwords: make(map[string]struct{}, len(portugueseStopwords)),
	}
	n.addStopwords(portugueseStopwords)
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Normalizer) addStopwords(words []string) {
	lower := cases.Lower(n.lang)
	for _, w := range words {
		w = strings.TrimSpace(lower.String(norm.NFC.String(w)))
		if w != "" {
			n.stopwords[w] = struct{}{}
		}
	}
}

// Normalize lower-cases raw, strips punctuation, drops numeric tokens and stopwords, and
// collapses whitespace. Empty input yields "".
func (n *Normalizer) Normalize(raw string) string {
	return strings.Join(n.Tokens(raw), " ")
}

// Tokens returns the normalized tokens of raw in order.
func (n *Normalizer) Tokens(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	// cases.Caser keeps state and must not be shared across goroutines.
	text := cases.Lower(n.lang).String(norm.NFC.String(raw))
	text = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r) {
			return r
		}
		return ' '
	}, text)

	fields := strings.Fields(text)
	tokens := fields[:0]
	for _, f := range fields {
		if isNumeric(f) {
			continue
		}
		if _, stop := n.stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// IsStopword reports whether word (already normalized) is in the stopword set.
func (n *Normalizer) IsStopword(word string) bool {
	_, ok := n.stopwords[word]
	return ok
}

func isNumeric(token string) bool {
	for _, r := range token {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
