package fetcher

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"flavorwatch/internal/config"
	"flavorwatch/internal/observability"
)

// RodFetcher renders the page in headless Chrome and returns the resulting DOM. It is used
// when rod.enabled is set, for pages that build the listing with script.
type RodFetcher struct {
	cfg         *config.Config
	logger      *observability.Logger
	rateLimiter *RateLimiter
}

func NewRodFetcher(cfg *config.Config, logger *observability.Logger) *RodFetcher {
	return &RodFetcher{
		cfg:         cfg,
		logger:      logger,
		rateLimiter: NewRateLimiter(cfg.RateLimit.MaxConcurrentPerHost, cfg.RateLimit.RPM),
	}
}

// Fetch launches a browser per call; runs are at most a few a day.
func (f *RodFetcher) Fetch(ctx context.Context, urlStr string) (*FetchResponse, error) {
	release, err := f.rateLimiter.Acquire(ctx, hostOf(urlStr))
	if err != nil {
		return nil, &NetworkError{URL: urlStr, Err: fmt.Errorf("rate limit: %w", err)}
	}
	defer release()

	l := launcher.New().Bin(f.cfg.Rod.ChromePath).Headless(true).Context(ctx)
	defer l.Cleanup()

	controlURL, err := l.Launch()
	if err != nil {
		return nil, &NetworkError{URL: urlStr, Err: fmt.Errorf("launch browser: %w", err)}
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, &NetworkError{URL: urlStr, Err: fmt.Errorf("connect browser: %w", err)}
	}
	defer func() {
		if err := browser.Close(); err != nil {
			f.logger.Warn("Failed to close browser", "error", err.Error())
		}
	}()

	page, err := browser.Timeout(f.cfg.GetRodPageTimeout()).Page(proto.TargetCreateTarget{URL: urlStr})
	if err != nil {
		return nil, &NetworkError{URL: urlStr, Err: fmt.Errorf("open page: %w", err)}
	}

	if err := page.Timeout(f.cfg.GetRodWaitLoadTimeout()).WaitLoad(); err != nil {
		return nil, &NetworkError{URL: urlStr, Err: fmt.Errorf("wait load: %w", err)}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &NetworkError{URL: urlStr, Err: fmt.Errorf("read DOM: %w", err)}
	}

	f.logger.Debug("Page rendered", "url", urlStr, "body_bytes", len(html))

	return &FetchResponse{
		StatusCode: 200,
		Body:       []byte(html),
		URL:        urlStr,
	}, nil
}
