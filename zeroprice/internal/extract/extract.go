// Package extract turns the product tiles of a loaded listing page into
// zero-price listings.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/solarwatch/listing"
	"github.com/hazyhaar/solarwatch/zeroprice/internal/page"
)

// Selectors locate the parts of a product tile.
type Selectors struct {
	Container    string `yaml:"container"`
	Tile         string `yaml:"tile"`
	HiddenPrice  string `yaml:"hidden_price"`
	VisiblePrice string `yaml:"visible_price"`
	Link         string `yaml:"link"`
	Title        string `yaml:"title"`
}

// DefaultSelectors match the shop's WooCommerce markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Container:    "ul.listing-products",
		Tile:         "ul.listing-products li.listing-product",
		HiddenPrice:  ".price_for_filter",
		VisiblePrice: ".wcpbc-price",
		Link:         "a.totallink",
		Title:        ".item-compare-title",
	}
}

// WithDefaults fills empty fields from DefaultSelectors.
func (s Selectors) WithDefaults() Selectors {
	d := DefaultSelectors()
	if s.Container == "" {
		s.Container = d.Container
	}
	if s.Tile == "" {
		s.Tile = d.Tile
	}
	if s.HiddenPrice == "" {
		s.HiddenPrice = d.HiddenPrice
	}
	if s.VisiblePrice == "" {
		s.VisiblePrice = d.VisiblePrice
	}
	if s.Link == "" {
		s.Link = d.Link
	}
	if s.Title == "" {
		s.Title = d.Title
	}
	return s
}

// ExtractionError reports a zero-price tile that could not be turned into
// a listing: its title or link element is missing or unreadable. An empty
// title is kept as is.
type ExtractionError struct {
	Index int    // tile position on the page, 0-based
	Field string // "title" or "link"
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract: tile %d: %s: %v", e.Index, e.Field, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ErrMissingField is wrapped by ExtractionError when the link element has
// no usable href.
var ErrMissingField = errors.New("missing field")

// Extractor extracts zero-price listings from a page.Session.
type Extractor struct {
	sel    Selectors
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger for skipped tiles.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithSelectors overrides the default selectors. Empty fields keep their
// defaults.
func WithSelectors(s Selectors) Option {
	return func(e *Extractor) { e.sel = s.WithDefaults() }
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{sel: DefaultSelectors(), logger: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Selectors returns the effective selectors.
func (e *Extractor) Selectors() Selectors { return e.sel }

// Extract returns the zero-price listings on the currently loaded page, in
// document order. Tiles that qualify but lack a title or link are skipped
// and reported as *ExtractionError in errs. A failed tile query yields a
// single wrapped error and no listings.
func (e *Extractor) Extract(ctx context.Context, s page.Session) ([]listing.Listing, []error) {
	tiles, err := s.QueryAll(ctx, e.sel.Tile)
	if err != nil {
		return nil, []error{fmt.Errorf("extract: query tiles: %w", err)}
	}

	var (
		out  []listing.Listing
		errs []error
	)
	for i, tile := range tiles {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		hidden := optionalText(tile, e.sel.HiddenPrice)
		visible := optionalText(tile, e.sel.VisiblePrice)

		value, ok := ResolvePrice(hidden, visible)
		if !ok || value != 0 {
			continue
		}

		l, xerr := e.build(i, tile, visible)
		if xerr != nil {
			e.logger.Warn("extract: skipping tile", "index", i, "field", xerr.Field, "error", xerr.Err)
			errs = append(errs, xerr)
			continue
		}
		out = append(out, l)
	}
	return out, errs
}

func (e *Extractor) build(i int, tile page.Element, visible string) (listing.Listing, *ExtractionError) {
	titleEl, err := tile.QueryOne(e.sel.Title)
	if err != nil {
		return listing.Listing{}, &ExtractionError{Index: i, Field: "title", Err: err}
	}
	title, err := titleEl.Text()
	if err != nil {
		return listing.Listing{}, &ExtractionError{Index: i, Field: "title", Err: err}
	}
	title = strings.TrimSpace(title)

	linkEl, err := tile.QueryOne(e.sel.Link)
	if err != nil {
		return listing.Listing{}, &ExtractionError{Index: i, Field: "link", Err: err}
	}
	href, ok, err := linkEl.Attribute("href")
	if err != nil {
		return listing.Listing{}, &ExtractionError{Index: i, Field: "link", Err: err}
	}
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return listing.Listing{}, &ExtractionError{Index: i, Field: "link", Err: ErrMissingField}
	}

	priceText := visible
	if priceText == "" {
		priceText = listing.DefaultPriceText
	}
	return listing.Listing{Title: title, PriceText: priceText, Link: href}, nil
}

// optionalText returns the trimmed text of the first match of selector
// inside el, or "" when there is none.
func optionalText(el page.Element, selector string) string {
	sub, err := el.QueryOne(selector)
	if err != nil {
		return ""
	}
	t, err := sub.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(t)
}
