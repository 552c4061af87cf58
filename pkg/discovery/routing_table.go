package discovery

import (
	"regexp"
	"strings"
)

// pathLiteral matches `path: 'x'` and `path: "x"` inside route definitions.
//
// This is a text heuristic, not a parser. It misses paths built from expressions
// or template literals, picks up matches inside comments, and cannot see literals
// split across lines.
var pathLiteral = regexp.MustCompile(`path:\s*['"]([^'"]*)['"]`)

// ExtractPathLiterals returns the routes named by path literals in content, in
// order of appearance. An empty literal is the root route.
func ExtractPathLiterals(content string) []string {
	matches := pathLiteral.FindAllStringSubmatch(content, -1)
	routes := make([]string, 0, len(matches))
	for _, m := range matches {
		literal := m[1]
		if literal == "" {
			routes = append(routes, "/")
			continue
		}
		// a leading slash would turn the route into a network-path reference
		routes = append(routes, "/"+strings.TrimLeft(literal, "/"))
	}
	return routes
}
