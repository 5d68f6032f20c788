// Copyright (c) 2026 Howkings. All rights reserved.

// Package slug generates ASCII slugs from arbitrary Unicode strings.
//
// # Usage
//
// Slugs identify module-request tags (e.g. "quantum-computing") so that
// "Quantum Computing" and "quantum computing" vote into the same bucket. The
// request pool is bilingual, so the Lithuanian alphabet gets an explicit
// transliteration table; everything else falls back to Unicode decomposition.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// lithuanian maps the nine accented letters of the Lithuanian alphabet onto
// their ASCII counterparts. Lowercase only; From lowercases before folding.
var lithuanian = map[rune]rune{
	'ą': 'a',
	'č': 'c',
	'ę': 'e',
	'ė': 'e',
	'į': 'i',
	'š': 's',
	'ų': 'u',
	'ū': 'u',
	'ž': 'z',
}

// accentFold strips combining marks left over after the Lithuanian table,
// covering tags typed in other Latin-script languages.
var accentFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// From converts free-form tag text into a URL-safe ASCII slug: lowercase,
// transliterated, with every run of other characters collapsed into a single
// hyphen and no hyphens at the ends.
func From(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if ascii, found := lithuanian[r]; found {
			return ascii
		}
		return r
	}, s)
	s, _, _ = transform.String(accentFold, s)

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	return b.String()
}

// Tags normalizes a list of free-form tags into deduplicated slugs,
// preserving first-seen order and dropping entries that normalize to nothing.
func Tags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))

	for _, tag := range raw {
		s := From(tag)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
