package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/solarwatch/zeroprice/internal/htmldoc"
	"github.com/hazyhaar/solarwatch/zeroprice/internal/page"
)

const shopURL = "https://www.solar-guitars.com/shop/page/1/"

const fixture = `<html><body>
<ul class="listing-products">
  <li class="listing-product">
    <span class="price_for_filter" style="display:none">0</span>
    <a class="totallink" href="/product/free-pick/"><span class="item-compare-title"> Free Pick </span></a>
  </li>
  <li class="listing-product">
    <span class="wcpbc-price"><del>€1,200.00</del> <ins>€0.00</ins></span>
    <a class="totallink" href="https://www.solar-guitars.com/product/a2-6/"><span class="item-compare-title">A2.6</span></a>
  </li>
  <li class="listing-product">
    <span class="wcpbc-price">€1,200.00</span>
    <a class="totallink" href="/product/expensive/"><span class="item-compare-title">Expensive</span></a>
  </li>
  <li class="listing-product">
    <span class="price_for_filter">0</span>
    <span class="item-compare-title">No link here</span>
  </li>
  <li class="listing-product">
    <a class="totallink" href="/product/no-price/"><span class="item-compare-title">No price</span></a>
  </li>
  <li class="listing-product">
    <span class="price_for_filter">0</span>
    <a class="totallink" href="/product/after-bad-tile/"><span class="item-compare-title">After bad tile</span></a>
  </li>
</ul>
</body></html>`

func TestExtract(t *testing.T) {
	s, err := htmldoc.ParseString(fixture, shopURL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	got, errs := New().Extract(context.Background(), s)

	want := []struct{ title, price, link string }{
		{"Free Pick", "€0.00", "https://www.solar-guitars.com/product/free-pick/"},
		{"A2.6", "€1,200.00 €0.00", "https://www.solar-guitars.com/product/a2-6/"},
		{"After bad tile", "€0.00", "https://www.solar-guitars.com/product/after-bad-tile/"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d listings, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Title != w.title || got[i].PriceText != w.price || got[i].Link != w.link {
			t.Errorf("listing %d = %+v, want %+v", i, got[i], w)
		}
	}

	// WHAT: a zero-price tile without a link is reported, not fatal.
	// WHY: one malformed tile must not hide the rest of the page.
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	var xerr *ExtractionError
	if !errors.As(errs[0], &xerr) {
		t.Fatalf("error %T is not *ExtractionError", errs[0])
	}
	if xerr.Index != 3 || xerr.Field != "link" {
		t.Errorf("ExtractionError = %+v, want index 3 field link", xerr)
	}
}

func TestExtract_EmptyPage(t *testing.T) {
	s, err := htmldoc.ParseString(`<html><body><p>nothing</p></body></html>`, shopURL)
	if err != nil {
		t.Fatal(err)
	}
	got, errs := New().Extract(context.Background(), s)
	if len(got) != 0 || len(errs) != 0 {
		t.Errorf("got %v / %v, want nothing", got, errs)
	}
}

func TestExtract_EmptyTitleKept(t *testing.T) {
	// WHAT: a zero-price tile whose title element renders no text is still a finding.
	// WHY: only a missing element is a failure; notifications show "Unknown".
	html := `<ul class="listing-products"><li class="listing-product">
<span class="price_for_filter">0</span>
<a class="totallink" href="/p/"><span class="item-compare-title">  </span></a>
</li></ul>`
	s, err := htmldoc.ParseString(html, shopURL)
	if err != nil {
		t.Fatal(err)
	}
	got, errs := New().Extract(context.Background(), s)
	if len(errs) != 0 {
		t.Errorf("errs = %v, want none", errs)
	}
	if len(got) != 1 {
		t.Fatalf("got %d listings, want 1", len(got))
	}
	if got[0].Title != "" || got[0].Link != "https://www.solar-guitars.com/p/" {
		t.Errorf("listing = %+v", got[0])
	}
}

func TestExtract_MissingTitleIsError(t *testing.T) {
	html := `<ul class="listing-products"><li class="listing-product">
<span class="price_for_filter">0</span>
<a class="totallink" href="/p/">no title element</a>
</li></ul>`
	s, err := htmldoc.ParseString(html, shopURL)
	if err != nil {
		t.Fatal(err)
	}
	got, errs := New().Extract(context.Background(), s)
	if len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
	var xerr *ExtractionError
	if len(errs) != 1 || !errors.As(errs[0], &xerr) || xerr.Field != "title" {
		t.Errorf("errs = %v, want one title ExtractionError", errs)
	}
	if !errors.Is(errs[0], page.ErrNotFound) {
		t.Errorf("err %v does not wrap page.ErrNotFound", errs[0])
	}
}

func TestWithSelectors_KeepsDefaults(t *testing.T) {
	e := New(WithSelectors(Selectors{Title: "h2"}))
	sel := e.Selectors()
	if sel.Title != "h2" {
		t.Errorf("Title = %q", sel.Title)
	}
	if sel.Tile != DefaultSelectors().Tile {
		t.Errorf("Tile = %q, want default", sel.Tile)
	}
}
