// Package emaillist turns operator-supplied CSV or line-separated text into a
// deduplicated, validated list of email addresses for direct bulk assignment.
package emaillist

import "strings"

// MaxEmails caps how many addresses a single batch may carry.
const MaxEmails = 500

// Batch is the outcome of parsing one uploaded file. Emails preserves first
// occurrence order and is always lowercase; Invalid holds rejected tokens as
// they appeared in the input.
type Batch struct {
	Emails     []string `json:"emails"`
	Invalid    []string `json:"invalid"`
	Duplicates int      `json:"duplicates"`
	Truncated  int      `json:"truncated"`
}

// Empty reports whether the batch holds no accepted address. An empty batch
// is a valid parse result; callers treat it as a validation condition.
func (b *Batch) Empty() bool {
	return len(b.Emails) == 0
}

// Parse extracts email addresses from raw CSV/line text. Malformed input
// never fails the parse; bad tokens land in Invalid and everything else is
// lowercased, deduplicated and capped at MaxEmails.
func Parse(text string) *Batch {
	batch := &Batch{Emails: []string{}, Invalid: []string{}}
	seen := make(map[string]struct{})

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cell := firstCell(line)
		// Header heuristic: a first line whose first cell mentions "email"
		// is a column header, not an address.
		if i == 0 && strings.Contains(strings.ToLower(cell), "email") && !validEmail(strings.ToLower(cell)) {
			continue
		}
		lower := strings.ToLower(cell)
		if !validEmail(lower) {
			batch.Invalid = append(batch.Invalid, cell)
			continue
		}
		if _, dup := seen[lower]; dup {
			batch.Duplicates++
			continue
		}
		seen[lower] = struct{}{}
		if len(batch.Emails) >= MaxEmails {
			batch.Truncated++
			continue
		}
		batch.Emails = append(batch.Emails, lower)
	}
	return batch
}

// firstCell takes the substring before the first comma, semicolon or tab and
// strips surrounding quotes and whitespace.
func firstCell(line string) string {
	cell := line
	if idx := strings.IndexAny(line, ",;\t"); idx >= 0 {
		cell = line[:idx]
	}
	cell = strings.TrimSpace(cell)
	cell = strings.Trim(cell, `"'`)
	return strings.TrimSpace(cell)
}

// validEmail is a minimal shape check, not RFC validation: exactly one @,
// neither at the edges, and a dot somewhere in the domain.
func validEmail(s string) bool {
	if s == "" || len(s) > 255 {
		return false
	}
	if strings.Count(s, "@") != 1 {
		return false
	}
	at := strings.Index(s, "@")
	if at == 0 || at == len(s)-1 {
		return false
	}
	return strings.Contains(s[at+1:], ".")
}
