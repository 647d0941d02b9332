package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	nonAlnumRegex  = regexp.MustCompile(`[^a-z0-9]+`)
	multiDashRegex = regexp.MustCompile(`-+`)
)

// Slugify builds a URL-safe product slug, prefixed with the vendor id
// to keep slugs unique across vendors.
func Slugify(name string, vendorID int64) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = nonAlnumRegex.ReplaceAllString(slug, "-")
	slug = multiDashRegex.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	return fmt.Sprintf("v%d-%s", vendorID, slug)
}
