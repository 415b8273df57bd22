// Package content derives URL slugs, excerpts, and reading times from post text.
package content

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// FallbackSlug is used when a title contains no usable characters.
const FallbackSlug = "post"

const maxSlugRunes = 300

// MaxSlugAttempts bounds how many numbered candidates UniqueSlug tries.
const MaxSlugAttempts = 1000

// Slugify lowercases title and joins its alphanumeric runs with single hyphens.
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	pendingHyphen := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	slug := b.String()
	if runes := []rune(slug); len(runes) > maxSlugRunes {
		slug = strings.TrimRight(string(runes[:maxSlugRunes]), "-")
	}
	if slug == "" {
		return FallbackSlug
	}
	return slug
}

// SlugExists reports whether a candidate slug is already taken. Callers
// scope it to one author and may exclude the post being edited.
type SlugExists func(ctx context.Context, slug string) (bool, error)

// UniqueSlug returns Slugify(title), or the first of "<base>-1", "<base>-2", ...
// that exists reports as free.
//
// The probe and the later insert are not atomic; callers must still handle a
// unique violation on insert by probing again.
func UniqueSlug(ctx context.Context, title string, exists SlugExists) (string, error) {
	base := Slugify(title)
	candidate := base
	for n := 1; n <= MaxSlugAttempts; n++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("probe slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, MaxSlugAttempts)
}
