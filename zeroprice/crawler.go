// Package zeroprice crawls a fixed set of shop listing pages for products
// priced at exactly zero, remembers every one it has reported, and notifies
// about the ones it has not seen before.
package zeroprice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"

	"github.com/hazyhaar/solarwatch/idgen"
	"github.com/hazyhaar/solarwatch/listing"
	"github.com/hazyhaar/solarwatch/zeroprice/internal/extract"
	"github.com/hazyhaar/solarwatch/zeroprice/internal/notify"
)

// RunResult summarises one crawl.
type RunResult struct {
	RunID   string
	Scanned int     // targets that loaded and were extracted
	Failed  int     // targets skipped after a navigation or wait failure
	Found   int     // zero-price listings seen this run, repeats included
	New     []Entry // listings not previously stored, in encounter order
	Total   int     // size of the stored collection after the run
}

// Crawler runs the fetch, extract, merge, save and notify sequence.
type Crawler struct {
	cfg      *Config
	session  Session
	store    Store
	notifier Notifier
	out      io.Writer
	newID    idgen.Generator
	logger   *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger. Every line of a run carries its run_id.
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) { c.logger = l }
}

// WithNotifier sets the notifier for new listings. Default: none.
func WithNotifier(n Notifier) Option {
	return func(c *Crawler) { c.notifier = n }
}

// WithOutput sets where the JSON array of new listings is printed.
// Default: os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *Crawler) { c.out = w }
}

// WithIDGenerator replaces the run id generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(c *Crawler) { c.newID = g }
}

// New creates a Crawler reading pages through session and persisting to st.
// The caller owns both and closes them after the run.
func New(cfg *Config, session Session, st Store, opts ...Option) *Crawler {
	c := &Crawler{
		cfg:     cfg,
		session: session,
		store:   st,
		out:     os.Stdout,
		newID:   idgen.Prefixed("run_", idgen.Default),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.notifier == nil {
		c.notifier = notify.NewMulti(c.logger)
	}
	return c
}

// Run crawls every target once, in order. Per-target failures are logged
// and skipped. The store is saved even when nothing new was found; a save
// failure is returned. Notification failures are logged only.
func (c *Crawler) Run(ctx context.Context) (*RunResult, error) {
	res := &RunResult{RunID: c.newID()}
	log := c.logger.With("run_id", res.RunID)
	log.Info("zeroprice: run started", "targets", len(c.cfg.Targets), "fetch_mode", c.cfg.FetchMode)

	ex := extract.New(extract.WithSelectors(c.cfg.Selectors), extract.WithLogger(log))

	var found []listing.Listing
	for _, target := range c.cfg.Targets {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("zeroprice: run cancelled: %w", err)
		}

		got, err := c.scan(ctx, log, ex, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("zeroprice: run cancelled: %w", ctx.Err())
			}
			res.Failed++
			log.Warn("zeroprice: skipping target", "url", target, "error", err)
		} else {
			res.Scanned++
		}
		found = append(found, got...)
		log.Info("zeroprice: page scanned", append(targetAttrs(target), "found", len(got))...)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("zeroprice: run cancelled: %w", err)
	}
	res.Found = len(found)

	stored, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("zeroprice: load store: %w", err)
	}
	all, added := listing.Merge(stored, found)
	if err := c.store.Save(ctx, all); err != nil {
		return nil, fmt.Errorf("zeroprice: save store: %w", err)
	}
	res.New = added
	res.Total = len(all)

	if err := c.print(added); err != nil {
		log.Warn("zeroprice: print new listings", "error", err)
	}

	if len(added) == 0 {
		log.Info("zeroprice: no new zero-price listings", "total", res.Total)
	} else if err := c.notifier.Notify(ctx, added); err != nil {
		log.Error("zeroprice: notification failed", "new", len(added), "error", err)
	}

	log.Info("zeroprice: run finished",
		"scanned", res.Scanned, "failed", res.Failed,
		"found", res.Found, "new", len(res.New), "total", res.Total)
	return res, nil
}

// scan loads one target and extracts its zero-price listings. The error is
// non-nil when the page could not be loaded or its tiles could not be
// queried. Malformed tiles are not errors here.
func (c *Crawler) scan(ctx context.Context, log *slog.Logger, ex *extract.Extractor, target string) ([]listing.Listing, error) {
	if err := c.session.Navigate(ctx, target); err != nil {
		return nil, err
	}
	if err := c.session.WaitFor(ctx, c.cfg.Selectors.Container, c.cfg.Crawl.WaitTimeout); err != nil {
		return nil, err
	}
	if err := c.session.ScrollToStable(ctx, c.cfg.Crawl.ScrollPause); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("zeroprice: scroll failed, extracting loaded content", "url", target, "error", err)
	}

	got, errs := ex.Extract(ctx, c.session)
	for _, err := range errs {
		var xerr *extract.ExtractionError
		if !errors.As(err, &xerr) {
			return nil, err
		}
	}
	return got, nil
}

func (c *Crawler) print(entries []Entry) error {
	enc := json.NewEncoder(c.out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

var pagePattern = regexp.MustCompile(`/page/(\d+)/?$`)

// targetAttrs identifies a target by shop page number when it has one.
func targetAttrs(target string) []any {
	if m := pagePattern.FindStringSubmatch(target); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return []any{"page", n}
		}
	}
	return []any{"url", target}
}
