package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"flavorwatch/internal/fetcher"
	"flavorwatch/internal/flavor"
	"flavorwatch/internal/notifier"
	"flavorwatch/internal/observability"
	"flavorwatch/internal/scraper"
)

const (
	// MinListingTokens is the shortest listing the fixed slicing below can handle.
	MinListingTokens = 4
	// HeaderTokens leading tokens are page header text, not flavors.
	HeaderTokens = 3
)

// ErrEmptyListing means the listing block was missing or too short to slice.
var ErrEmptyListing = errors.New("listing has too few tokens")

// Notifier delivers a matched result.
type Notifier interface {
	Notify(ctx context.Context, res flavor.Result, matched []string) notifier.Report
}

// Matcher decides whether a result is interesting.
type Matcher interface {
	Matches(flavors []string) bool
	Matched(flavors []string) []string
}

// RunOptions varies per trigger.
type RunOptions struct {
	// Notify emails the recipients when the listing matches.
	Notify bool
	// Trigger names the invoker in logs, e.g. "schedule" or "http".
	Trigger string
}

// Outcome is what one successful run produced.
type Outcome struct {
	Result  flavor.Result
	Matched bool
	// Report is nil unless a notification was attempted.
	Report *notifier.Report
}

// Pipeline runs fetch → extract → slice → match → notify. It holds no per-run state, so
// concurrent runs are safe.
type Pipeline struct {
	url        string
	fetcher    fetcher.PageFetcher
	extractor  scraper.Extractor
	dateParser *scraper.DateParser
	matcher    Matcher
	notifier   Notifier
	logger     *observability.Logger
}

func NewPipeline(
	url string,
	f fetcher.PageFetcher,
	ext scraper.Extractor,
	dp *scraper.DateParser,
	m Matcher,
	n Notifier,
	logger *observability.Logger,
) *Pipeline {
	return &Pipeline{
		url:        url,
		fetcher:    f,
		extractor:  ext,
		dateParser: dp,
		matcher:    m,
		notifier:   n,
		logger:     logger,
	}
}

// Run performs one check. Errors are fatal to the run: a *fetcher.NetworkError,
// scraper.ErrExtraction or ErrEmptyListing. Mail failures never fail the run.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Outcome, error) {
	started := time.Now()

	raw, err := p.scrape(ctx)
	if err != nil {
		p.logger.Error("Run failed", "trigger", opts.Trigger, "url", p.url, "error", err.Error())
		return nil, err
	}

	result, err := BuildResult(raw, p.dateParser)
	if err != nil {
		p.logger.Error("Run failed",
			"trigger", opts.Trigger,
			"url", p.url,
			"tokens", len(raw),
			"error", err.Error(),
		)
		return nil, err
	}
	if result.Date == nil {
		p.logger.Warn("Failed to parse listing date", "trigger", opts.Trigger, "date_raw", raw[len(raw)-2])
	}

	outcome := &Outcome{Result: result, Matched: p.matcher.Matches(result.Flavors)}

	if outcome.Matched && opts.Notify {
		report := p.notifier.Notify(ctx, result, p.matcher.Matched(result.Flavors))
		outcome.Report = &report
	}

	p.logResult(opts, outcome, time.Since(started))
	return outcome, nil
}

func (p *Pipeline) scrape(ctx context.Context) (scraper.RawListing, error) {
	resp, err := p.fetcher.Fetch(ctx, p.url)
	if err != nil {
		return nil, err
	}

	raw, err := p.extractor.Extract(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// BuildResult applies the listing's fixed positional shape:
//
//	[header x3] [flavors ...] [date] [trailing artifact]
//
// The trailing token is dropped, the new last token is the date and the flavors are
// positions [3, len-1) of what remains. A date that fails to parse is left nil.
func BuildResult(raw scraper.RawListing, dp *scraper.DateParser) (flavor.Result, error) {
	if len(raw) < MinListingTokens {
		return flavor.Result{}, fmt.Errorf("%w: got %d, need at least %d", ErrEmptyListing, len(raw), MinListingTokens)
	}

	tokens := raw[:len(raw)-1]
	dateIdx := len(tokens) - 1

	flavors := make([]string, 0)
	if dateIdx > HeaderTokens {
		flavors = append(flavors, tokens[HeaderTokens:dateIdx]...)
	}

	return flavor.Result{
		Flavors: flavors,
		Date:    dp.Parse(tokens[dateIdx]),
	}, nil
}

func (p *Pipeline) logResult(opts RunOptions, outcome *Outcome, elapsed time.Duration) {
	date := "unknown"
	if outcome.Result.Date != nil {
		date = outcome.Result.Date.Format(flavor.DateFormat)
	}

	fields := []interface{}{
		"trigger", opts.Trigger,
		"flavors", outcome.Result.Flavors,
		"date", date,
		"matched", outcome.Matched,
		"elapsed_ms", elapsed.Milliseconds(),
	}
	if outcome.Report != nil {
		fields = append(fields,
			"delivered", len(outcome.Report.Delivered),
			"failed", len(outcome.Report.Failed),
		)
	}

	p.logger.Info("Run completed", fields...)
}
