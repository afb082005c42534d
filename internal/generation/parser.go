package generation

import (
	"sort"
	"strings"
)

// Section is one labeled span of provider output.
type Section struct {
	Label  string
	Value  string   // scalar form, always set
	List   []string // set when the span was comma-delimited
	IsList bool
}

// Parsed is the result of splitting raw provider output on known labels.
type Parsed struct {
	Body     string
	Sections map[string]Section
}

// ParseLabeled tokenizes raw provider output against an ordered label list in
// a single pass. Text before the first label is the narrative body; each
// labeled span runs to the next label occurrence or end of input. A span
// containing a comma parses as a list, otherwise as a scalar. Labels are
// matched case-insensitively at the start of a line, in the form "Label:".
// Missing labels are simply absent from Sections.
func ParseLabeled(raw string, labels []string) Parsed {
	parsed := Parsed{Sections: make(map[string]Section, len(labels))}

	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lower := strings.ToLower(raw)

	type occurrence struct {
		label string
		start int // index of the label token
		body  int // index just past "Label:"
	}

	var found []occurrence
	for _, label := range labels {
		token := strings.ToLower(label) + ":"
		idx := indexAtLineStart(lower, token)
		if idx < 0 {
			continue
		}
		found = append(found, occurrence{label: label, start: idx, body: idx + len(token)})
	}

	if len(found) == 0 {
		parsed.Body = strings.TrimSpace(raw)
		return parsed
	}

	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })

	parsed.Body = strings.TrimSpace(raw[:found[0].start])

	for i, occ := range found {
		end := len(raw)
		if i+1 < len(found) {
			end = found[i+1].start
		}
		value := strings.TrimSpace(raw[occ.body:end])

		section := Section{Label: occ.label, Value: value}
		if strings.Contains(value, ",") {
			section.IsList = true
			for _, part := range strings.Split(value, ",") {
				if trimmed := strings.TrimSpace(part); trimmed != "" {
					section.List = append(section.List, trimmed)
				}
			}
		}
		parsed.Sections[occ.label] = section
	}

	return parsed
}

// indexAtLineStart finds the first occurrence of token that begins a line.
func indexAtLineStart(haystack, token string) int {
	from := 0
	for {
		idx := strings.Index(haystack[from:], token)
		if idx < 0 {
			return -1
		}
		idx += from
		if idx == 0 || haystack[idx-1] == '\n' {
			return idx
		}
		from = idx + 1
	}
}

// MetadataMap converts parsed sections into the JSONB metadata shape stored
// on a generated post: list sections as string slices, scalars as strings.
func (p Parsed) MetadataMap() map[string]any {
	meta := make(map[string]any, len(p.Sections))
	for label, section := range p.Sections {
		key := strings.ToLower(label)
		if section.IsList {
			meta[key] = section.List
		} else {
			meta[key] = section.Value
		}
	}
	return meta
}
