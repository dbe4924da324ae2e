package instagram

import (
	"encoding/json"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// ParseTemplates decodes a JSON-encoded template list stored on an
// automation. Malformed input degrades to an empty list rather than
// an error; non-string and blank entries are dropped, so an array
// with mixed types keeps its usable string elements.
func ParseTemplates(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}

	var items []interface{}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []string{}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// SerializeTemplates encodes a template list for storage, dropping
// blank entries first.
func SerializeTemplates(templates []string) string {
	filtered := make([]string, 0, len(templates))
	for _, t := range templates {
		if strings.TrimSpace(t) != "" {
			filtered = append(filtered, t)
		}
	}
	data, err := json.Marshal(filtered)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// SelectTemplate picks a template by round-robin rotation. The index
// is typically the automation's interaction count, so successive
// matches cycle through the configured texts in order. Negative
// indexes wrap around via Euclidean modulo, which also keeps the
// extremes of the int range in bounds.
func SelectTemplate(templates []string, index int) string {
	n := len(templates)
	if n == 0 {
		return ""
	}
	return templates[((index%n)+n)%n]
}

// InterpolateTemplate replaces {{username}}, {{keyword}} and
// {{comment}} placeholders. Unknown or unset placeholders are left
// verbatim so a typo in a template stays visible instead of being
// silently erased.
func InterpolateTemplate(template string, vars TemplateVariables) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		switch name {
		case "username":
			if vars.Username != "" {
				return vars.Username
			}
		case "keyword":
			if vars.Keyword != "" {
				return vars.Keyword
			}
		case "comment":
			if vars.Comment != "" {
				return vars.Comment
			}
		}
		return match
	})
}

// ValidateTemplates reports whether a decoded request value is a list
// of non-blank strings. Used to reject malformed API input before it
// reaches storage.
func ValidateTemplates(candidate interface{}) bool {
	list, ok := candidate.([]interface{})
	if !ok {
		return false
	}
	for _, item := range list {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return false
		}
	}
	return true
}

// ValidateTemplateList is the typed variant of ValidateTemplates for
// request structs that already bind to []string.
func ValidateTemplateList(templates []string) bool {
	for _, t := range templates {
		if strings.TrimSpace(t) == "" {
			return false
		}
	}
	return true
}

// MatchKeyword checks a comment against a comma-separated keyword
// list. Matching is case-insensitive and whole-word, so "boom" does
// not match inside "boomerang". Returns the first keyword (in stored
// order) that matches, or "" when none do.
func MatchKeyword(commentText, keywordsCsv string) string {
	if strings.TrimSpace(keywordsCsv) == "" {
		return ""
	}

	for _, raw := range strings.Split(keywordsCsv, ",") {
		keyword := strings.ToLower(strings.TrimSpace(raw))
		if keyword == "" {
			continue
		}

		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
		if err != nil {
			continue
		}
		if re.MatchString(commentText) {
			return keyword
		}
	}

	return ""
}
