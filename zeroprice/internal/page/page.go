// Package page defines the capability interface the crawler needs from a
// rendered listing page. The browser package implements it on top of a
// real Chrome tab; htmldoc implements it over a static HTML document.
package page

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNavigation wraps any failure to load a URL.
	ErrNavigation = errors.New("page: navigation failed")
	// ErrNavigationTimeout is returned when the page did not finish loading
	// in time. Loading has been stopped.
	ErrNavigationTimeout = errors.New("page: navigation timed out")
	// ErrWaitTimeout is returned when WaitFor gave up on its selector.
	ErrWaitTimeout = errors.New("page: selector did not appear")
	// ErrNotFound is returned by Element.QueryOne when nothing matches.
	ErrNotFound = errors.New("page: element not found")
)

// Session drives one page through a sequence of URLs.
type Session interface {
	// Navigate loads url, replacing the current document.
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until selector matches or timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// ScrollToStable scrolls to the bottom, pausing between scrolls, until
	// the document height stops growing.
	ScrollToStable(ctx context.Context, pause time.Duration) error
	// QueryAll returns every element matching selector, in document order.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// Close releases the page.
	Close() error
}

// Element is a handle to one DOM element of the current document.
type Element interface {
	// QueryOne returns the first descendant matching selector, or ErrNotFound.
	QueryOne(selector string) (Element, error)
	// Text returns the element's text content.
	Text() (string, error)
	// Attribute returns the named attribute. URL attributes (href, src) are
	// resolved against the document URL. ok is false when absent.
	Attribute(name string) (value string, ok bool, err error)
}
