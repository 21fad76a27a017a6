package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// GenerateUniqueSlug derives a URL slug from name and suffixes "-N" until
// existsCheck reports it free. The caller decides what "exists" means; the
// league repository includes soft-deleted rows so buried slugs stay reserved.
func GenerateUniqueSlug(ctx context.Context, name string, existsCheck func(context.Context, string) (bool, error)) (string, error) {
	base := slugify(name)
	if base == "" {
		base = "league"
	}

	slug := base
	for counter := 1; ; counter++ {
		taken, err := existsCheck(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", slug, err)
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}

// slugify lowercases, strips diacritics, and collapses every non-alphanumeric
// run into a single dash.
func slugify(name string) string {
	decomposed := norm.NFD.String(strings.ToLower(strings.TrimSpace(name)))

	var b strings.Builder
	b.Grow(len(decomposed))
	lastDash := true
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark left over from decomposition
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	return strings.Trim(b.String(), "-")
}
