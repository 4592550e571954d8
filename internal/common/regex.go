package common

import (
	"fmt"
	"regexp"
)

// CompileAll compiles every pattern, optionally case-insensitive.
// It fails on the first invalid pattern and names it in the error.
func CompileAll(patterns []string, caseInsensitive bool) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		expr := p
		if caseInsensitive {
			expr = "(?i)" + p
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
