package common

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// maxSlugAttempts bounds the numeric suffix search before falling back to a random suffix.
	maxSlugAttempts = 100
	randomSuffixLen = 8
)

var slugSeparatorRX = regexp.MustCompile(`[^a-z0-9]+`)

// SlugExistsFunc reports whether slug is already taken within one entity namespace.
type SlugExistsFunc func(ctx context.Context, slug string) (bool, error)

// Slugify lowercases s, folds accented letters to ASCII and collapses every run of
// other characters into a single hyphen. The result may be empty.
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	folded = strings.ToLower(folded)

	return strings.Trim(slugSeparatorRX.ReplaceAllString(folded, "-"), "-")
}

// UniqueSlug derives a slug of at most maxLen bytes from source that exists reports as free.
// It tries the bare slug, then base-1, base-2, ... and gives up on counting after maxSlugAttempts,
// appending a random hex suffix instead. The random candidate is not checked; the unique index
// catches the rare clash.
func UniqueSlug(ctx context.Context, source string, maxLen int, exists SlugExistsFunc) (string, error) {
	base := truncateSlug(Slugify(source), maxLen-1-randomSuffixLen)
	slug := base

	for attempt := 1; ; attempt++ {
		taken, err := exists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}

		if attempt >= maxSlugAttempts {
			return RandomSlug(base), nil
		}

		slug = fmt.Sprintf("%s-%d", base, attempt)
	}
}

// truncateSlug cuts an ASCII slug to n bytes, leaving room for any suffix UniqueSlug appends.
func truncateSlug(slug string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(slug) <= n {
		return slug
	}
	return strings.TrimRight(slug[:n], "-")
}

// RandomSlug appends a random 8 character hex suffix to base.
func RandomSlug(base string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:randomSuffixLen]
	return base + "-" + suffix
}
