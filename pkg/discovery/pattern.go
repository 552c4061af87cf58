package discovery

import (
	"fmt"

	"github.com/gobwas/glob"
)

// PatternMatcher handles glob pattern matching for routes and file names
type PatternMatcher struct {
	allowedPatterns []glob.Glob
	deniedPatterns  []glob.Glob
}

// NewPatternMatcher compiles allowed and denied patterns. Separators are passed
// to the glob compiler, so with '/' a single * does not cross path segments.
func NewPatternMatcher(allowed, denied []string, separators ...rune) (*PatternMatcher, error) {
	pm := &PatternMatcher{}

	for _, pattern := range allowed {
		g, err := glob.Compile(pattern, separators...)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
		}
		pm.allowedPatterns = append(pm.allowedPatterns, g)
	}

	for _, pattern := range denied {
		g, err := glob.Compile(pattern, separators...)
		if err != nil {
			return nil, fmt.Errorf("invalid excluded pattern '%s': %w", pattern, err)
		}
		pm.deniedPatterns = append(pm.deniedPatterns, g)
	}

	return pm, nil
}

// IsAllowed returns true if s passes the filter: denied patterns take precedence,
// and an empty allow list admits everything.
func (pm *PatternMatcher) IsAllowed(s string) bool {
	for _, pattern := range pm.deniedPatterns {
		if pattern.Match(s) {
			return false
		}
	}

	if len(pm.allowedPatterns) == 0 {
		return true
	}

	return pm.Matches(s)
}

// Matches returns true if s matches any allowed pattern
func (pm *PatternMatcher) Matches(s string) bool {
	for _, pattern := range pm.allowedPatterns {
		if pattern.Match(s) {
			return true
		}
	}
	return false
}
