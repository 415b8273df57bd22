package content

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	// WordsPerMinute is the reading speed used for reading-time estimates.
	WordsPerMinute = 200
	// DefaultExcerptLength is the rune budget for generated excerpts.
	DefaultExcerptLength = 160
)

// stripPolicy drops every element but keeps text, inserting a space where a
// tag was so adjacent words stay apart.
var stripPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

var (
	mdImageRe     = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLinkRe      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdHeadingRe   = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	mdQuoteRe     = regexp.MustCompile(`(?m)^\s{0,3}>\s?`)
	mdListRe      = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	mdCodeFenceRe = regexp.MustCompile("(?m)^```.*$")
	mdEmphasisRe  = regexp.MustCompile("[*_~`]+")
	spaceRunRe    = regexp.MustCompile(`\s+`)
)

// ReadingTime estimates minutes to read text at WordsPerMinute, rounded up,
// never less than one.
func ReadingTime(text string) int {
	words := len(strings.Fields(PlainText(text)))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// PlainText strips HTML elements and markdown markup and collapses
// whitespace. A bare "<" or ">" in prose is text, not markup.
func PlainText(text string) string {
	out := html.UnescapeString(stripPolicy.Sanitize(text))
	out = mdCodeFenceRe.ReplaceAllString(out, " ")
	out = mdImageRe.ReplaceAllString(out, "$1")
	out = mdLinkRe.ReplaceAllString(out, "$1")
	out = mdHeadingRe.ReplaceAllString(out, "")
	out = mdQuoteRe.ReplaceAllString(out, "")
	out = mdListRe.ReplaceAllString(out, "")
	out = mdEmphasisRe.ReplaceAllString(out, "")
	out = spaceRunRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// Excerpt returns the plain-text prefix of text, at most maxLength runes
// plus a trailing "..." when truncated. maxLength <= 0 means DefaultExcerptLength.
func Excerpt(text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultExcerptLength
	}
	plain := PlainText(text)
	if utf8.RuneCountInString(plain) <= maxLength {
		return plain
	}
	runes := []rune(plain)
	cut := strings.TrimSpace(string(runes[:maxLength]))
	return cut + "..."
}
