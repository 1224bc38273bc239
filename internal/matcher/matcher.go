// Package matcher decides whether a listing contains a flavor of interest.
package matcher

import "strings"

// Matcher tests flavor names for case-insensitive keyword substrings.
type Matcher struct {
	keywords []string
}

// New lower-cases and trims keywords once; blank keywords are ignored.
func New(keywords []string) *Matcher {
	m := &Matcher{keywords: make([]string, 0, len(keywords))}
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			m.keywords = append(m.keywords, k)
		}
	}
	return m
}

// Keywords returns the normalized keyword set.
func (m *Matcher) Keywords() []string {
	return append([]string(nil), m.keywords...)
}

// Matches reports whether any flavor contains any keyword.
func (m *Matcher) Matches(flavors []string) bool {
	for _, f := range flavors {
		if m.hit(f) {
			return true
		}
	}
	return false
}

// Matched returns the flavors that contain at least one keyword, in listing order.
func (m *Matcher) Matched(flavors []string) []string {
	out := make([]string, 0)
	for _, f := range flavors {
		if m.hit(f) {
			out = append(out, f)
		}
	}
	return out
}

func (m *Matcher) hit(flavor string) bool {
	lower := strings.ToLower(flavor)
	for _, k := range m.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
