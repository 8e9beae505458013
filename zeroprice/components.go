package zeroprice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/solarwatch/listing"
	"github.com/hazyhaar/solarwatch/zeroprice/internal/browser"
	"github.com/hazyhaar/solarwatch/zeroprice/internal/config"
	"github.com/hazyhaar/solarwatch/zeroprice/internal/htmldoc"
	"github.com/hazyhaar/solarwatch/zeroprice/internal/notify"
	"github.com/hazyhaar/solarwatch/zeroprice/internal/page"
	"github.com/hazyhaar/solarwatch/zeroprice/internal/store"
	"github.com/hazyhaar/solarwatch/zeroprice/internal/web"
)

// Session drives the page the crawler reads listings from.
type Session = page.Session

// Store persists every reported listing.
type Store = store.Store

// Notifier delivers new listings.
type Notifier = notify.Notifier

// Entry is one persisted zero-price listing.
type Entry = listing.Entry

// OpenSession creates the page session for cfg.FetchMode. For browser mode
// Chrome is launched now; Close on the session also shuts it down.
func OpenSession(ctx context.Context, cfg *Config, logger *slog.Logger) (Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.FetchMode == config.FetchHTTP {
		opts := []htmldoc.Option{
			htmldoc.WithTimeout(cfg.Crawl.PageLoadTimeout),
			htmldoc.WithLogger(logger),
		}
		if cfg.Crawl.UserAgent != "" {
			opts = append(opts, htmldoc.WithUserAgent(cfg.Crawl.UserAgent))
		}
		return htmldoc.New(opts...), nil
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Mode:             browser.ParseMode(cfg.Browser.Mode),
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		XvfbDisplay:      cfg.Browser.XvfbDisplay,
		NoSandbox:        cfg.Browser.NoSandbox,
		Logger:           logger,
	})
	s, err := browser.NewSession(ctx, mgr, browser.SessionConfig{
		PageLoadTimeout: cfg.Crawl.PageLoadTimeout,
		MaxScrolls:      cfg.Crawl.MaxScrolls,
	})
	if err != nil {
		mgr.Close()
		return nil, fmt.Errorf("zeroprice: start browser: %w", err)
	}
	return &managedSession{Session: s, mgr: mgr}, nil
}

// managedSession closes the Chrome process along with its tab.
type managedSession struct {
	*browser.Session
	mgr *browser.Manager
}

func (m *managedSession) Close() error {
	return errors.Join(m.Session.Close(), m.mgr.Close())
}

// OpenStore opens the configured result store. The returned func releases
// it.
func OpenStore(cfg *Config, logger *slog.Logger) (Store, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		s, err := store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("zeroprice: open store: %w", err)
		}
		return s, s.Close, nil
	default:
		f := store.NewJSONFile(cfg.Store.Path, store.WithLogger(logger))
		logger.Debug("zeroprice: json store", "path", f.Path())
		return f, func() error { return nil }, nil
	}
}

// NewNotifier builds the email notifier and, when a URL is configured, the
// webhook notifier. Email without credentials or recipient skips itself.
func NewNotifier(cfg *Config, logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	ns := []notify.Notifier{
		notify.NewEmail(cfg.Email.Settings(), notify.WithEmailLogger(logger)),
	}
	if cfg.Webhook.URL != "" {
		ns = append(ns, notify.NewWebhook(cfg.Webhook.URL,
			notify.WithWebhookRetries(cfg.Webhook.Retries),
			notify.WithWebhookLogger(logger)))
	}
	m := notify.NewMulti(logger, ns...)
	logger.Debug("zeroprice: notifiers configured", "count", m.Len(), "email_ready", cfg.Email.Settings().Ready())
	return m
}

// Handler serves the read-only results viewer over st.
func Handler(st Store, logger *slog.Logger) http.Handler {
	return web.NewRouter(st, logger)
}
