package check

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// SelectorAll matches every check.
const SelectorAll = "*"

// matchesPattern returns true if the check matches the selector pattern.
// Pattern can be:
//   - Wildcard: "*" matches all checks
//   - Suite name: "nodes", "databases"
//   - Exact ID, case-insensitive: "NC-001"
//   - Glob over the ID: "NC-*", "D?-00[1-3]"
//   - Otherwise a case-insensitive substring of the check name: "swap"
func matchesPattern(check Check, pattern string) (bool, error) {
	if pattern == SelectorAll {
		return true, nil
	}

	if pattern == check.Suite() {
		return true, nil
	}

	if strings.EqualFold(pattern, check.ID()) {
		return true, nil
	}

	if hasGlobMeta(pattern) {
		matched, err := path.Match(strings.ToUpper(pattern), strings.ToUpper(check.ID()))
		if err != nil {
			return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}

		return matched, nil
	}

	return strings.Contains(strings.ToLower(check.Name()), strings.ToLower(pattern)), nil
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[\`)
}

// ValidateSelectors validates all check selector patterns.
func ValidateSelectors(selectors []string) error {
	if len(selectors) == 0 {
		return errors.New("at least one check selector is required")
	}

	for _, s := range selectors {
		if err := ValidateSelector(s); err != nil {
			return err
		}
	}

	return nil
}

// ValidateSelector validates a single check selector pattern.
func ValidateSelector(selector string) error {
	if strings.TrimSpace(selector) == "" {
		return errors.New("check selector cannot be empty")
	}

	if selector == SelectorAll || !hasGlobMeta(selector) {
		return nil
	}

	if _, err := path.Match(selector, "NC-001"); err != nil {
		return fmt.Errorf("invalid check selector pattern %q: %w", selector, err)
	}

	return nil
}
