package llm

import (
	"sort"
	"strings"
)

// Render substitutes {name} placeholders in template with vars. Placeholders
// without a value are left untouched. Substitution is single-pass so values
// containing braces are never re-expanded.
func Render(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// StripFences removes a surrounding markdown code fence, if any, and trims
// whitespace.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
