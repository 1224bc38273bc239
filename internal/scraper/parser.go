package scraper

import (
	"regexp"
	"strings"
	"time"
)

// ListingDateLayout is the shape of the date line once the ordinal suffix is removed,
// e.g. "Thursday , June 5 2025".
const ListingDateLayout = "Monday , January 2 2006"

var (
	ordinalDay  = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	commaSpaces = regexp.MustCompile(`\s*,\s*`)
	spaces      = regexp.MustCompile(`\s+`)
)

// DateParser reads the listing's date line.
type DateParser struct {
	loc *time.Location
}

// NewDateParser returns a parser producing midnight dates in loc (UTC when nil).
func NewDateParser(loc *time.Location) *DateParser {
	if loc == nil {
		loc = time.UTC
	}
	return &DateParser{loc: loc}
}

// Parse returns nil for anything that is not "<Weekday> , <Month> <ordinal day> <year>".
// The weekday must be a real weekday name but is not checked against the date.
func (dp *DateParser) Parse(dateStr string) *time.Time {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return nil
	}
	if !ordinalDay.MatchString(dateStr) {
		return nil
	}

	cleaned := ordinalDay.ReplaceAllString(dateStr, "$1")
	cleaned = commaSpaces.ReplaceAllString(cleaned, " , ")
	cleaned = spaces.ReplaceAllString(cleaned, " ")

	t, err := time.ParseInLocation(ListingDateLayout, cleaned, dp.loc)
	if err != nil {
		return nil
	}
	return &t
}
