// Package htmlsanitize strips unsafe HTML from user-supplied rich
// text (project descriptions, task descriptions, review notes).
package htmlsanitize

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	once   sync.Once
	policy *bluemonday.Policy
)

func getPolicy() *bluemonday.Policy {
	once.Do(func() {
		p := bluemonday.UGCPolicy()
		// Extra formatting common in pasted rich text.
		p.AllowElements("u", "s", "sub", "sup", "mark")
		p.AllowTables()
		p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
		p.AllowAttrs("class").OnElements("table", "tr", "td", "th")
		policy = p
	})
	return policy
}

// Sanitize returns s with unsafe HTML removed. Safe formatting tags
// (p, strong, em, lists, tables, headings, links) are preserved.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return getPolicy().Sanitize(s)
}

// StripTags removes all HTML, leaving plain text. Used for fields that
// should never contain markup (names, titles).
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return bluemonday.StrictPolicy().Sanitize(s)
}
