package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
)

// Slugify derives the URL-safe base identifier for a store name.
func Slugify(name string) string {
	return slug.Make(strings.TrimSpace(name))
}

// SlugFamilyPattern matches base itself and base followed by a numeric suffix, case-insensitively.
func SlugFamilyPattern(base string) string {
	return fmt.Sprintf(`^%s(-[0-9]+)?$`, regexp.QuoteMeta(base))
}

// ResolveSlug picks the slug for base given the slugs already present in its family.
// With no siblings base is returned unchanged. Otherwise the suffix is the sibling
// count, bumped until it does not collide with an existing sibling.
func ResolveSlug(base string, siblings []string) string {
	if len(siblings) == 0 {
		return base
	}
	taken := make(map[string]struct{}, len(siblings))
	for _, s := range siblings {
		taken[strings.ToLower(s)] = struct{}{}
	}
	for n := len(siblings); ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
