package scraper

// RawListing is the ordered text of every label found inside the matching listing
// containers, in document order. It still carries header and date tokens.
type RawListing []string

// Selectors describes how to find the listing block on the page.
type Selectors struct {
	// Container matches every candidate block, e.g. ".et_pb_text_inner".
	Container string `yaml:"container"`
	// LocationKeyword picks the right block among the candidates; compared case-insensitively
	// against the container's full text.
	LocationKeyword string `yaml:"location_keyword"`
	// Label matches the leaf elements read from a chosen container.
	Label string `yaml:"label"`
}
