package http

import (
	"strconv"
	"strings"

	"transstats/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// splitList flattens repeated and comma-separated values, dropping blanks.
// The result is never nil.
func splitList(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = sanitizeInput(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// viewCacheKey identifies views computed from one load generation under one filter.
func viewCacheKey(generation uint64, f core.Filters) string {
	return generationPrefix(generation) + f.Fingerprint()
}

func generationPrefix(generation uint64) string {
	return strconv.FormatUint(generation, 10) + "#"
}
