// Package flavor holds the result of one listing check.
package flavor

import "time"

// DateFormat is how listing dates are rendered in JSON.
const DateFormat = "2006-01-02"

// Result is created fresh by every run and never shared between runs.
type Result struct {
	Flavors []string
	// Date is nil when the listing's date line could not be parsed.
	Date *time.Time
}

// View is the JSON projection returned by on-demand checks.
type View struct {
	Flavors []string `json:"flavors"`
	Date    *string  `json:"date"`
	Found   bool     `json:"found"`
}

// NewView projects r. Flavors is never null in the JSON output.
func NewView(r Result, found bool) View {
	v := View{
		Flavors: append(make([]string, 0, len(r.Flavors)), r.Flavors...),
		Found:   found,
	}
	if r.Date != nil {
		d := r.Date.Format(DateFormat)
		v.Date = &d
	}
	return v
}
