package scraper

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrExtraction is returned when the page markup cannot be read at all.
var ErrExtraction = errors.New("extraction failed")

// Extractor turns page markup into a RawListing.
type Extractor interface {
	Extract(r io.Reader) (RawListing, error)
}

// TextNormalizer cleans a single label text before it is collected.
type TextNormalizer interface {
	Text(s string) string
}

// KeywordContainerExtractor collects the labels of every container whose text mentions
// the location keyword.
type KeywordContainerExtractor struct {
	selectors  Selectors
	keyword    string
	normalizer TextNormalizer
}

// NewKeywordContainerExtractor builds an extractor. normalizer may be nil, in which case
// label text is only trimmed.
func NewKeywordContainerExtractor(selectors Selectors, normalizer TextNormalizer) *KeywordContainerExtractor {
	return &KeywordContainerExtractor{
		selectors:  selectors,
		keyword:    strings.ToLower(strings.TrimSpace(selectors.LocationKeyword)),
		normalizer: normalizer,
	}
}

// Extract returns an empty listing, not an error, when no container matches.
func (e *KeywordContainerExtractor) Extract(r io.Reader) (RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse HTML: %v", ErrExtraction, err)
	}

	listing := make(RawListing, 0)
	doc.Find(e.selectors.Container).Each(func(_ int, container *goquery.Selection) {
		if !strings.Contains(strings.ToLower(container.Text()), e.keyword) {
			return
		}
		container.Find(e.selectors.Label).Each(func(_ int, label *goquery.Selection) {
			listing = append(listing, e.clean(label.Text()))
		})
	})

	return listing, nil
}

func (e *KeywordContainerExtractor) clean(text string) string {
	if e.normalizer != nil {
		return e.normalizer.Text(text)
	}
	return strings.TrimSpace(text)
}
