package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	htmlmd "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
)

// Error reports a failed content retrieval, carrying the underlying
// cause.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("Error fetching URL: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fetcher retrieves the raw text behind a URL-type job input.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Options control fetch behavior for both engines.
type Options struct {
	UserAgent     string
	Markdownify   bool
	RespectRobots bool
}

// HTTPFetcher performs a single plain GET per fetch. No retries; the
// caller bounds the call through the request context.
type HTTPFetcher struct {
	client *http.Client
	opts   Options
}

func NewHTTPFetcher(opts Options) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{},
		opts:   opts,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &Error{URL: rawURL, Err: err}
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}

	if f.opts.RespectRobots {
		if err := f.checkRobots(ctx, u); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", &Error{URL: rawURL, Err: err}
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &Error{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{URL: rawURL, Err: fmt.Errorf("server returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{URL: rawURL, Err: err}
	}

	content := string(body)
	if f.opts.Markdownify && strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		content = Markdownify(content, u.Hostname())
	}
	return content, nil
}

// checkRobots fetches the host's robots.txt and refuses the fetch when
// the path is disallowed for our user agent. An unreachable or missing
// robots.txt allows the fetch.
func (f *HTTPFetcher) checkRobots(ctx context.Context, u *url.URL) error {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}

	agent := f.opts.UserAgent
	if agent == "" {
		agent = "Plated"
	}
	if !data.TestAgent(u.Path, agent) {
		return &Error{URL: u.String(), Err: errors.New("fetch disallowed by robots.txt")}
	}
	return nil
}

// Markdownify converts an HTML page to markdown so prompts stay within
// model context limits. Script, style, and noscript nodes are pruned
// first. On any conversion failure the original HTML is returned.
func Markdownify(html, host string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style, noscript").Remove()

	pruned, err := doc.Html()
	if err != nil {
		pruned = html
	}

	converter := htmlmd.NewConverter(host, true, nil)
	markdown, err := converter.ConvertString(pruned)
	if err != nil || strings.TrimSpace(markdown) == "" {
		return html
	}
	return markdown
}
