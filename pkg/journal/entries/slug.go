package entries

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/mikepea/journal/pkg/journal/models"
)

// fallbackSlug is used when a title has no ASCII letters or digits left
// after normalization.
const fallbackSlug = "entry"

var (
	quotes          = regexp.MustCompile(`['"]+`)
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify converts a title to a URL-safe slug. Letters are transliterated
// to ASCII, so "Straße" becomes "strasse" rather than losing the ß.
// "Learning Go" -> "learning-go".
// "Café au lait!" -> "cafe-au-lait".
// "Don't panic" -> "dont-panic".
func Slugify(title string) string {
	s := norm.NFKC.String(title)
	s = quotes.ReplaceAllString(s, "")
	s = slug.Make(s)
	// slug.Make keeps underscores
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// baseSlug is Slugify with the empty-result fallback applied.
func baseSlug(title string) string {
	if s := Slugify(title); s != "" {
		return s
	}
	return fallbackSlug
}

// pickSlug returns the first of base, base1, base2, ... that is not in taken.
func pickSlug(base string, taken []string) string {
	if len(taken) == 0 {
		return base
	}
	seen := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		seen[s] = struct{}{}
	}
	candidate := base
	for n := 1; ; n++ {
		if _, ok := seen[candidate]; !ok {
			return candidate
		}
		candidate = base + strconv.Itoa(n)
	}
}

// AllocateSlug derives a slug for title that no existing entry uses.
// Every slug containing the base slug is fetched once and candidates are
// probed against that set.
func AllocateSlug(tx *gorm.DB, title string) (string, error) {
	base := baseSlug(title)

	var taken []string
	if err := tx.Model(&models.Entry{}).
		Where("slug LIKE ?", "%"+base+"%").
		Pluck("slug", &taken).Error; err != nil {
		return "", errors.Wrap(err, "fetch existing slugs")
	}

	return pickSlug(base, taken), nil
}
