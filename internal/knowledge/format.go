package knowledge

import (
	"encoding/json"
	"fmt"
	"strings"
)

const maxMemberLines = 10

// searchEnvelope is the JSON shape the fuzzy-search tools return in their
// text blocks.
type searchEnvelope struct {
	Results []apiEntry `json:"results"`
	Total   int        `json:"total"`
}

// apiEntry describes one API symbol or document fragment.
type apiEntry struct {
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	BelongsTo   string     `json:"belongs_to"`
	Description string     `json:"description"`
	Signature   string     `json:"signature"`
	Content     string     `json:"content"`
	Members     []apiEntry `json:"members"`
}

// formatBlocks renders the endpoint's text blocks into Markdown the answer
// model can quote from. Blocks that are not recognizable JSON pass through
// untouched: the endpoint sometimes returns prose directly.
func formatBlocks(blocks []string) string {
	var out []string
	for _, block := range blocks {
		if formatted := formatBlock(block); formatted != "" {
			out = append(out, formatted)
		}
	}
	return strings.Join(out, "\n\n")
}

func formatBlock(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return trimmed
	}

	var env searchEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err == nil && len(env.Results) > 0 {
		return formatEntries(env.Results)
	}
	var entry apiEntry
	if err := json.Unmarshal([]byte(trimmed), &entry); err == nil && entry.Name != "" {
		return formatEntries([]apiEntry{entry})
	}
	var entries []apiEntry
	if err := json.Unmarshal([]byte(trimmed), &entries); err == nil && len(entries) > 0 {
		return formatEntries(entries)
	}
	// Unknown JSON shape, keep it verbatim rather than drop information.
	return trimmed
}

func formatEntries(entries []apiEntry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		header := e.Name
		if e.BelongsTo != "" && !strings.Contains(e.Name, ".") {
			header = e.BelongsTo + "." + e.Name
		}
		if e.Type != "" {
			fmt.Fprintf(&b, "### %s (%s)\n", header, e.Type)
		} else {
			fmt.Fprintf(&b, "### %s\n", header)
		}
		if e.Signature != "" {
			fmt.Fprintf(&b, "```\n%s\n```\n", strings.TrimSpace(e.Signature))
		}
		if desc := strings.TrimSpace(e.Description); desc != "" {
			b.WriteString(desc)
			b.WriteString("\n")
		}
		if body := strings.TrimSpace(e.Content); body != "" {
			b.WriteString(body)
			b.WriteString("\n")
		}
		if len(e.Members) > 0 {
			b.WriteString(formatMembers(e.Members))
		}
	}
	return strings.TrimSpace(b.String())
}

// formatMembers lists a class's members one per line, capped so a large
// class does not crowd the rest of the context out of the prompt.
func formatMembers(members []apiEntry) string {
	var b strings.Builder
	shown := members
	if len(shown) > maxMemberLines {
		shown = shown[:maxMemberLines]
	}
	for _, m := range shown {
		line := m.Name
		if m.Signature != "" {
			line = strings.TrimSpace(m.Signature)
		}
		if m.Description != "" {
			fmt.Fprintf(&b, "- `%s` %s\n", line, firstLine(m.Description))
		} else {
			fmt.Fprintf(&b, "- `%s`\n", line)
		}
	}
	if rest := len(members) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "- ... and %d more members\n", rest)
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
