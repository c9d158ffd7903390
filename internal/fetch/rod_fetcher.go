package fetch

import (
	"context"
	"net/url"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// RodFetcher uses a real browser (via rod) to render JS-heavy pages
// before handing back their HTML. Recipe sites that assemble the page
// client-side return empty bodies to a plain GET; this engine covers
// those.
type RodFetcher struct {
	BrowserURL string
	opts       Options
}

func NewRodFetcher(browserURL string, opts Options) *RodFetcher {
	return &RodFetcher{BrowserURL: browserURL, opts: opts}
}

func (r *RodFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &Error{URL: rawURL, Err: err}
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}

	browser := rod.New().Context(ctx)
	if r.BrowserURL != "" {
		browser = browser.ControlURL(r.BrowserURL)
	}

	if err := browser.Connect(); err != nil {
		return "", &Error{URL: rawURL, Err: err}
	}
	defer browser.MustClose()

	page, err := browser.Page(proto.TargetCreateTarget{URL: u.String()})
	if err != nil {
		return "", &Error{URL: rawURL, Err: err}
	}
	defer page.MustClose()

	if err := page.WaitLoad(); err != nil {
		return "", &Error{URL: rawURL, Err: err}
	}

	html, err := page.HTML()
	if err != nil {
		return "", &Error{URL: rawURL, Err: err}
	}

	if r.opts.Markdownify {
		return Markdownify(html, u.Hostname()), nil
	}
	return html, nil
}
