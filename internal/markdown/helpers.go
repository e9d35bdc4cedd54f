package markdown

import (
	"strings"
	"unicode/utf8"
)

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const (
	mdV2SpecialChars    = `_*[]()~` + "`" + `>#+-=|{}.!\`
	mdV2URLSpecialChars = `)\`
)

//nolint:gochecknoglobals // Lookup tables meant to be immutable.
var (
	mdV2Lookup    = newLookup(mdV2SpecialChars)
	mdV2URLLookup = newLookup(mdV2URLSpecialChars)
)

func newLookup(chars string) [256]bool {
	var m [256]bool
	for _, c := range []byte(chars) {
		m[c] = true
	}
	return m
}

// EscapeV2 escapes text for use outside of entities in MarkdownV2.
func EscapeV2(input string) string {
	return escape(input, &mdV2Lookup)
}

// Link renders an inline link; the URL is escaped as the Bot API requires
// inside the parentheses part.
func Link(text, url string) string {
	return "[" + EscapeV2(text) + "](" + escape(url, &mdV2URLLookup) + ")"
}

func Bold(text string) string {
	return "*" + EscapeV2(text) + "*"
}

func Italic(text string) string {
	return "_" + EscapeV2(text) + "_"
}

// Truncate cuts s to at most maxRunes runes, ending with an ellipsis when cut.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}

	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}

	runes := []rune(s)

	return strings.TrimSpace(string(runes[:maxRunes-1])) + "…"
}

func escape(input string, lookup *[256]bool) string {
	charsToEscape := 0

	for i := range len(input) {
		if lookup[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}
