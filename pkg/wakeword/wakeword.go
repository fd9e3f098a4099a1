// Package wakeword decides whether a transcript is addressed to the assistant.
//
// Matching is text-level: a transcript is addressed when it begins with one of
// the configured wake phrases. Optionally, each phrase token may also match
// phonetically (Double Metaphone) or by Jaro-Winkler similarity, so common
// transcription slips like "Jervis" still count.
package wakeword

import (
	"sort"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	defaultFuzzyThreshold    = 0.85
	defaultPhoneticThreshold = 0.70
)

// Option configures a Matcher.
type Option func(*Matcher)

// WithFuzzy enables approximate matching. threshold is the minimum
// Jaro-Winkler score for tokens without a phonetic match; 0 keeps the default.
func WithFuzzy(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzy = true
		if threshold > 0 {
			m.fuzzyThreshold = threshold
		}
	}
}

// Matcher strips wake phrases from transcripts. It is read-only after
// construction and safe for concurrent use.
type Matcher struct {
	phrases           [][]string
	fuzzy             bool
	fuzzyThreshold    float64
	phoneticThreshold float64
}

// New creates a matcher for the given phrases. Longer phrases are tried
// first so "hey jarvis" wins over "jarvis".
func New(phrases []string, opts ...Option) *Matcher {
	m := &Matcher{
		fuzzyThreshold:    defaultFuzzyThreshold,
		phoneticThreshold: defaultPhoneticThreshold,
	}
	for _, o := range opts {
		o(m)
	}

	for _, p := range phrases {
		toks := tokenize(p)
		if len(toks) == 0 {
			continue
		}
		norm := make([]string, len(toks))
		for i, t := range toks {
			norm[i] = t.norm
		}
		m.phrases = append(m.phrases, norm)
	}
	sort.SliceStable(m.phrases, func(i, j int) bool {
		return len(m.phrases[i]) > len(m.phrases[j])
	})
	return m
}

// Match reports whether text starts with a wake phrase and returns the rest
// of the transcript with its original casing. The remainder may be empty
// when the user only said the wake phrase.
func (m *Matcher) Match(text string) (remainder string, ok bool) {
	toks := tokenize(text)
	if len(toks) == 0 {
		return "", false
	}

	for _, exact := range []bool{true, false} {
		if !exact && !m.fuzzy {
			break
		}
		for _, phrase := range m.phrases {
			if len(toks) < len(phrase) {
				continue
			}
			if m.prefixMatches(toks, phrase, exact) {
				return join(toks[len(phrase):]), true
			}
		}
	}
	return "", false
}

func (m *Matcher) prefixMatches(toks []token, phrase []string, exact bool) bool {
	for i, want := range phrase {
		got := toks[i].norm
		if got == want {
			continue
		}
		if exact || !m.similar(got, want) {
			return false
		}
	}
	return true
}

func (m *Matcher) similar(got, want string) bool {
	score := matchr.JaroWinkler(got, want, false)
	if score >= m.fuzzyThreshold {
		return true
	}
	return score >= m.phoneticThreshold && codesOverlap(got, want)
}

func codesOverlap(a, b string) bool {
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	for _, x := range []string{ap, as} {
		if x == "" {
			continue
		}
		if x == bp || x == bs {
			return true
		}
	}
	return false
}

type token struct {
	orig string
	norm string
}

// tokenize splits on whitespace and drops tokens with no letters or digits.
func tokenize(s string) []token {
	fields := strings.Fields(s)
	out := make([]token, 0, len(fields))
	for _, f := range fields {
		norm := strings.ToLower(strings.TrimFunc(f, notWordRune))
		if norm == "" {
			continue
		}
		out = append(out, token{orig: f, norm: norm})
	}
	return out
}

func join(toks []token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.orig
	}
	return strings.TrimLeftFunc(strings.Join(parts, " "), notWordRune)
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
