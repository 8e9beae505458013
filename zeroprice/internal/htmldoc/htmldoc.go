// Package htmldoc implements page.Session over plain HTTP: one GET per
// navigation, parsed with goquery. No JavaScript runs, so lazy-loaded tiles
// are not seen; use it for server-rendered listings and as the fixture DOM
// in tests.
package htmldoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/solarwatch/horosafe"
	"github.com/hazyhaar/solarwatch/zeroprice/internal/page"
)

// Session is a page.Session backed by a static HTML document.
type Session struct {
	client  *http.Client
	timeout time.Duration
	ua      string
	maxBody int64
	logger  *slog.Logger

	doc  *goquery.Document
	base *url.URL
}

// Option configures a Session.
type Option func(*Session)

// WithClient sets a custom HTTP client. It is never modified.
func WithClient(c *http.Client) Option {
	return func(s *Session) { s.client = c }
}

// WithTimeout bounds each navigation, body read included. Default: 60s.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Session) { s.ua = ua }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New creates a Session with no document loaded.
func New(opts ...Option) *Session {
	s := &Session{
		client:  &http.Client{},
		timeout: 60 * time.Second,
		ua:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		maxBody: horosafe.MaxPageBody,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Parse builds a Session around an already available document. pageURL is
// used to resolve relative links and may be empty.
func Parse(r io.Reader, pageURL string) (*Session, error) {
	s := New()
	if err := s.load(r, pageURL); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseString is Parse for an in-memory document.
func ParseString(html, pageURL string) (*Session, error) {
	return Parse(strings.NewReader(html), pageURL)
}

// Navigate GETs rawURL and replaces the current document.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	s.doc, s.base = nil, nil

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", page.ErrNavigation, rawURL, err)
	}
	req.Header.Set("User-Agent", s.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %s", page.ErrNavigationTimeout, rawURL)
		}
		return fmt.Errorf("%w: %s: %v", page.ErrNavigation, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: status %d", page.ErrNavigation, rawURL, resp.StatusCode)
	}

	body, err := horosafe.LimitedReadAll(resp.Body, s.maxBody)
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", page.ErrNavigation, rawURL, err)
	}

	s.logger.Debug("htmldoc: fetched", "url", rawURL, "status", resp.StatusCode, "size", len(body))
	return s.load(bytes.NewReader(body), resp.Request.URL.String())
}

// WaitFor checks that selector is present. A static document cannot change,
// so there is nothing to wait for.
func (s *Session) WaitFor(_ context.Context, selector string, _ time.Duration) error {
	if s.doc == nil {
		return fmt.Errorf("%w: no document loaded", page.ErrNavigation)
	}
	if s.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: %q", page.ErrWaitTimeout, selector)
	}
	return nil
}

// ScrollToStable is a no-op: the document is already complete.
func (s *Session) ScrollToStable(context.Context, time.Duration) error { return nil }

// QueryAll returns every element matching selector.
func (s *Session) QueryAll(_ context.Context, selector string) ([]page.Element, error) {
	if s.doc == nil {
		return nil, fmt.Errorf("%w: no document loaded", page.ErrNavigation)
	}
	var out []page.Element
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, &element{sel: sel, base: s.base})
	})
	return out, nil
}

// Close drops the current document.
func (s *Session) Close() error {
	s.doc = nil
	return nil
}

func (s *Session) load(r io.Reader, pageURL string) error {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return fmt.Errorf("htmldoc: parse: %w", err)
	}
	var base *url.URL
	if pageURL != "" {
		if base, err = url.Parse(pageURL); err != nil {
			return fmt.Errorf("htmldoc: page url: %w", err)
		}
	}
	s.doc = doc
	s.base = base
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

type element struct {
	sel  *goquery.Selection
	base *url.URL
}

func (e *element) QueryOne(selector string) (page.Element, error) {
	found := e.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil, fmt.Errorf("%w: %q", page.ErrNotFound, selector)
	}
	return &element{sel: found, base: e.base}, nil
}

func (e *element) Text() (string, error) {
	return e.sel.Text(), nil
}

func (e *element) Attribute(name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	if !ok {
		return "", false, nil
	}
	if (name == "href" || name == "src") && e.base != nil {
		ref, err := url.Parse(strings.TrimSpace(v))
		if err != nil {
			return v, true, nil
		}
		return e.base.ResolveReference(ref).String(), true, nil
	}
	return v, true, nil
}
