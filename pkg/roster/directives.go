package roster

import (
	"regexp"
	"strings"
)

// Directive is one actionable item extracted from committed model text.
// Exactly one of Note or Fields is set.
type Directive struct {
	GuestID string
	Note    string
	Fields  map[string]string
}

var directiveRe = regexp.MustCompile(`@(note|update)\{([^|{}]+)\|([^{}]*)\}`)

// ParseDirectives scans text for the @note / @update grammar emitted by
// the assistant per RenderInstructions. Malformed directives are
// skipped; the spoken text around them is ignored.
func ParseDirectives(text string) []Directive {
	var out []Directive
	for _, m := range directiveRe.FindAllStringSubmatch(text, -1) {
		kind := m[1]
		guestID := strings.TrimSpace(m[2])
		body := strings.TrimSpace(m[3])
		if guestID == "" {
			continue
		}

		switch kind {
		case "note":
			if body == "" {
				continue
			}
			out = append(out, Directive{GuestID: guestID, Note: body})
		case "update":
			fields := parseFields(body)
			if len(fields) == 0 {
				continue
			}
			out = append(out, Directive{GuestID: guestID, Fields: fields})
		}
	}
	return out
}

func parseFields(body string) map[string]string {
	fields := make(map[string]string)
	for _, pair := range strings.Split(body, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			continue
		}
		fields[key] = value
	}
	return fields
}

// StripDirectives removes directive lines from text, leaving only the
// spoken reply. Used by UIs that render committed model turns.
func StripDirectives(text string) string {
	stripped := directiveRe.ReplaceAllString(text, "")
	lines := strings.Split(stripped, "\n")
	out := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) == "" && len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
