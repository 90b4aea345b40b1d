// Package bundle implements the page-bundle convention: one directory per
// post, named by date and slug, holding the entry document and its
// co-located assets.
package bundle

import (
	"regexp"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	slugStripRe    = regexp.MustCompile(`[^a-z0-9]+`)
	bundleNameRe   = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-([a-z0-9][a-z0-9-]*)$`)
	multiHyphenRe  = regexp.MustCompile(`-{2,}`)
)

// Slug normalises a title into a lowercase, hyphenated slug.
// Runs of non-alphanumeric characters collapse into a single hyphen;
// leading and trailing hyphens are trimmed.
func Slug(title string) string {
	s := strings.ToLower(title)
	s = slugStripRe.ReplaceAllString(s, "-")
	s = multiHyphenRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Name returns the bundle directory name for a title and creation date.
// It is a pure function of its inputs: "My Post Title" + 2025-11-01
// yields "2025-11-01-my-post-title".
func Name(title string, date time.Time) string {
	slug := Slug(title)
	if slug == "" {
		return ""
	}
	return date.Format(dateLayout) + "-" + slug
}

// ParseName splits a bundle directory name into its date and slug.
// ok is false when the name does not follow the convention.
func ParseName(dir string) (date time.Time, slug string, ok bool) {
	m := bundleNameRe.FindStringSubmatch(dir)
	if m == nil {
		return time.Time{}, "", false
	}
	d, err := time.Parse(dateLayout, m[1])
	if err != nil {
		return time.Time{}, "", false
	}
	return d, m[2], true
}

// IsBundleName reports whether dir follows the bundle naming convention.
func IsBundleName(dir string) bool {
	_, _, ok := ParseName(dir)
	return ok
}
