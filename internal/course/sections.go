package course

import "strings"

// Section is one headed block of lesson content, derived by splitting the raw
// text on markdown headings.
type Section struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

// SplitSections breaks lesson text into sections at level-2 and level-3
// markdown headings. Text before the first heading is dropped from the
// structured form; the raw text is always kept elsewhere in full. A body with
// no headings yields an empty section list. The split is deterministic: the
// same input always produces the same sections.
func SplitSections(raw string) []Section {
	sections := []Section{}
	var current *Section
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(strings.Join(body, "\n"))
		sections = append(sections, *current)
		current = nil
		body = nil
	}

	for _, line := range strings.Split(raw, "\n") {
		if heading, ok := headingText(line); ok {
			flush()
			current = &Section{Heading: heading}
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()

	return sections
}

func headingText(line string) (string, bool) {
	switch {
	case strings.HasPrefix(line, "## "):
		return strings.TrimSpace(strings.TrimLeft(line, "#")), true
	case strings.HasPrefix(line, "### "):
		return strings.TrimSpace(strings.TrimLeft(line, "#")), true
	default:
		return "", false
	}
}
