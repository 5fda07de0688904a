package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	MinJobTextLength = 100
	maxBodyBytes     = 10 << 20
)

// Fetcher retrieves a posting and returns its visible text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// URLProber answers whether a URL still resolves.
type URLProber interface {
	Probe(ctx context.Context, url string) bool
}

type HTTPFetcher struct {
	client     *http.Client
	maxTextLen int
	log        *logger.Logger
}

func NewHTTPFetcher(timeout time.Duration, maxTextLen int, log *logger.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client:     newHTTPClient(timeout),
		maxTextLen: maxTextLen,
		log:        log.With("service", "Fetcher"),
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", unreachableURL(err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Warn("Fetch failed", "url", rawURL, "error", err)
		return "", unreachableURL(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		f.log.Warn("Fetch returned bad status", "url", rawURL, "status", resp.StatusCode)
		return "", unreachableURL(fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", unreachableURL(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return "", unreachableURL(errors.New("empty body"))
	}

	text, err := ExtractVisibleText(body)
	if err != nil {
		return "", unreachableURL(err)
	}
	if err := CheckTextLength(text, f.maxTextLen); err != nil {
		return "", err
	}
	return text, nil
}

// ExtractVisibleText strips markup and collapses whitespace.
func ExtractVisibleText(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, template, svg, iframe, head").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return strings.Join(strings.Fields(root.Text()), " "), nil
}

// CheckTextLength enforces the accepted size window, counted in characters.
func CheckTextLength(text string, maxLen int) error {
	n := utf8.RuneCountInString(text)
	if n < MinJobTextLength {
		return insufficientContent(fmt.Sprintf("The page had too little readable text (%d characters) to analyze.", n))
	}
	if maxLen > 0 && n > maxLen {
		return insufficientContent(fmt.Sprintf("The page is too long to analyze (%d characters, limit %d).", n, maxLen))
	}
	return nil
}

type HTTPProber struct {
	client *http.Client
}

func NewHTTPProber(timeout time.Duration) *HTTPProber {
	return &HTTPProber{client: newHTTPClient(timeout)}
}

// Probe issues a HEAD request, following redirects; 2xx/3xx counts as alive.
func (p *HTTPProber) Probe(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", browserUserAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}
