// SPDX-License-Identifier: MIT

// Package adfilter flags now-playing metadata that matches a set of
// advertisement keywords.
package adfilter

import "strings"

// Filter matches text against a fixed keyword list, case-insensitively.
// The zero-keyword filter matches nothing.
type Filter struct {
	keywords []string
}

// New builds a Filter from the given keywords. Keywords are lowercased
// once at construction so Match stays cheap. Empty and whitespace-only
// keywords are dropped.
func New(keywords []string) *Filter {
	f := &Filter{keywords: make([]string, 0, len(keywords))}
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		f.keywords = append(f.keywords, strings.ToLower(kw))
	}
	return f
}

// Match reports whether any keyword occurs as a substring of text,
// ignoring case.
func (f *Filter) Match(text string) bool {
	if text == "" || len(f.keywords) == 0 {
		return false
	}
	lowered := strings.ToLower(text)
	for _, kw := range f.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Keywords returns a copy of the active keyword list.
func (f *Filter) Keywords() []string {
	out := make([]string, len(f.keywords))
	copy(out, f.keywords)
	return out
}
