package normalize

import (
	"regexp"
	"strings"

	"flavorwatch/internal/config"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalizer cleans label text scraped from the listing.
type Normalizer struct {
	cfg config.NormalizeConfig
}

func NewNormalizer(cfg config.NormalizeConfig) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Text replaces NBSP, collapses whitespace runs and trims, as configured.
func (n *Normalizer) Text(text string) string {
	if n.cfg.TrimNBSP {
		text = strings.ReplaceAll(text, "\u00A0", " ")
	}

	if n.cfg.CollapseSpaces {
		text = whitespaceRun.ReplaceAllString(text, " ")
	}

	return strings.TrimSpace(text)
}
