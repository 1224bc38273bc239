// Package scraper reads the flavor listing out of the shop's page markup.
//
// Extraction is a strategy: a container selector, a location keyword that picks the right
// container among several, and a label selector for the leaf values. The package also parses
// the listing's date line.
package scraper
