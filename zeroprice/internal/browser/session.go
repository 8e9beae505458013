package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/solarwatch/zeroprice/internal/page"
)

// SessionConfig bounds the waits of a Session.
type SessionConfig struct {
	// PageLoadTimeout caps one navigation. Default: 60s.
	PageLoadTimeout time.Duration
	// MaxScrolls caps ScrollToStable iterations. Default: 50.
	MaxScrolls int
}

func (c *SessionConfig) defaults() {
	if c.PageLoadTimeout <= 0 {
		c.PageLoadTimeout = 60 * time.Second
	}
	if c.MaxScrolls <= 0 {
		c.MaxScrolls = 50
	}
}

// Session is one stealth tab reused for every URL of a run.
type Session struct {
	mgr    *Manager
	cfg    SessionConfig
	page   *rod.Page
	router *rod.HijackRouter
}

// NewSession starts the manager's browser if needed and opens a stealth
// tab with resource blocking applied.
func NewSession(ctx context.Context, mgr *Manager, cfg SessionConfig) (*Session, error) {
	cfg.defaults()

	b, err := mgr.Start(ctx)
	if err != nil {
		return nil, err
	}

	p, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: stealth page: %w", err)
	}

	s := &Session{mgr: mgr, cfg: cfg, page: p}
	if len(mgr.cfg.ResourceBlocking) > 0 {
		r, err := blockResources(p, mgr.cfg.ResourceBlocking)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("browser: resource blocking: %w", err)
		}
		s.router = r
	}
	return s, nil
}

// Navigate loads url and waits for the load event. When the load does not
// finish within PageLoadTimeout the page is told to stop loading and
// page.ErrNavigationTimeout is returned.
func (s *Session) Navigate(ctx context.Context, url string) error {
	load := func(navCtx context.Context) error {
		p := s.page.Context(navCtx)
		if err := p.Navigate(url); err != nil {
			return err
		}
		return p.WaitLoad()
	}
	stop := func() error { return proto.PageStopLoading{}.Call(s.page) }
	return loadWithin(ctx, url, s.cfg.PageLoadTimeout, load, stop, s.mgr.cfg.Logger)
}

// WaitFor polls until an element matching selector exists.
func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	_, err := s.page.Context(ctx).Timeout(timeout).Element(selector)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %q after %s", page.ErrWaitTimeout, selector, timeout)
	}
	return fmt.Errorf("browser: wait for %q: %w", selector, err)
}

const (
	jsScrollHeight = `() => document.body.scrollHeight`
	jsScrollBottom = `() => window.scrollTo(0, document.body.scrollHeight)`
)

// ScrollToStable scrolls to the bottom, pauses, and repeats until the
// document height stops growing or MaxScrolls is reached.
func (s *Session) ScrollToStable(ctx context.Context, pause time.Duration) error {
	p := s.page.Context(ctx)
	height := func() (int, error) { return scrollHeight(p) }
	scroll := func() error {
		if _, err := p.Eval(jsScrollBottom); err != nil {
			return fmt.Errorf("browser: scroll: %w", err)
		}
		return nil
	}

	n, capped, err := scrollUntilStable(ctx, height, scroll, pause, s.cfg.MaxScrolls)
	if capped {
		s.mgr.cfg.Logger.Debug("browser: scroll cap reached", "max_scrolls", s.cfg.MaxScrolls)
	}
	s.mgr.cfg.Logger.Debug("browser: scrolled", "scrolls", n)
	return err
}

func scrollHeight(p *rod.Page) (int, error) {
	res, err := p.Eval(jsScrollHeight)
	if err != nil {
		return 0, fmt.Errorf("browser: scroll height: %w", err)
	}
	return res.Value.Int(), nil
}

// QueryAll returns every element matching selector without waiting.
func (s *Session) QueryAll(ctx context.Context, selector string) ([]page.Element, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %q: %w", selector, err)
	}
	out := make([]page.Element, len(els))
	for i, el := range els {
		out[i] = element{el}
	}
	return out, nil
}

// Close closes the tab. The browser itself is closed by the Manager.
func (s *Session) Close() error {
	if s.router != nil {
		s.router.Stop()
	}
	if err := s.page.Close(); err != nil {
		return fmt.Errorf("browser: close page: %w", err)
	}
	return nil
}

type element struct{ el *rod.Element }

func (e element) QueryOne(selector string) (page.Element, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %q: %w", selector, err)
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %q", page.ErrNotFound, selector)
	}
	return element{els.First()}, nil
}

func (e element) Text() (string, error) {
	t, err := e.el.Text()
	if err != nil {
		return "", fmt.Errorf("browser: text: %w", err)
	}
	return t, nil
}

// Attribute reads href and src through the DOM property so the value is
// the absolute URL the browser resolved.
func (e element) Attribute(name string) (string, bool, error) {
	if name == "href" || name == "src" {
		prop, err := e.el.Property(name)
		if err == nil && !prop.Nil() && prop.Str() != "" {
			return prop.Str(), true, nil
		}
	}
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("browser: attribute %q: %w", name, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

var _ page.Session = (*Session)(nil)
