package htmldoc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hazyhaar/solarwatch/zeroprice/internal/page"
)

const shopHTML = `<!DOCTYPE html>
<html><body>
<ul class="listing-products">
  <li class="listing-product">
    <a class="totallink" href="/product/strap/">Strap</a>
    <span class="item-compare-title">Strap</span>
  </li>
  <li class="listing-product">
    <a class="totallink" href="https://cdn.example.com/x">X</a>
  </li>
</ul>
</body></html>`

func TestNavigate_QueryAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent")
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(shopHTML))
	}))
	defer srv.Close()

	s := New()
	ctx := context.Background()
	if err := s.Navigate(ctx, srv.URL+"/shop/page/1/"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := s.WaitFor(ctx, "ul.listing-products", time.Second); err != nil {
		t.Fatalf("wait: %v", err)
	}

	tiles, err := s.QueryAll(ctx, "ul.listing-products li.listing-product")
	if err != nil {
		t.Fatal(err)
	}
	if len(tiles) != 2 {
		t.Fatalf("tiles: got %d, want 2", len(tiles))
	}

	link, err := tiles[0].QueryOne("a.totallink")
	if err != nil {
		t.Fatal(err)
	}
	href, ok, err := link.Attribute("href")
	if err != nil || !ok {
		t.Fatalf("href: ok=%v err=%v", ok, err)
	}
	if want := srv.URL + "/product/strap/"; href != want {
		t.Errorf("relative href: got %q, want %q", href, want)
	}

	link, _ = tiles[1].QueryOne("a.totallink")
	href, _, _ = link.Attribute("href")
	if href != "https://cdn.example.com/x" {
		t.Errorf("absolute href: got %q", href)
	}

	if _, err := tiles[1].QueryOne(".item-compare-title"); !errors.Is(err, page.ErrNotFound) {
		t.Errorf("missing title: got %v, want ErrNotFound", err)
	}
}

func TestNavigate_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	err := New().Navigate(context.Background(), srv.URL)
	if !errors.Is(err, page.ErrNavigation) {
		t.Fatalf("got %v, want ErrNavigation", err)
	}
}

func TestNavigate_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	err := New(WithTimeout(50 * time.Millisecond)).Navigate(context.Background(), srv.URL)
	if !errors.Is(err, page.ErrNavigationTimeout) {
		t.Fatalf("got %v, want ErrNavigationTimeout", err)
	}
}

func TestWithTimeout_CallerClientUntouched(t *testing.T) {
	// WHAT: the timeout applies whatever the option order, and the caller's client keeps its settings.
	// WHY: a shared client must not inherit one session's timeout.
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	for name, opts := range map[string]func(*http.Client) []Option{
		"timeout first": func(c *http.Client) []Option { return []Option{WithTimeout(50 * time.Millisecond), WithClient(c)} },
		"client first":  func(c *http.Client) []Option { return []Option{WithClient(c), WithTimeout(50 * time.Millisecond)} },
	} {
		t.Run(name, func(t *testing.T) {
			client := &http.Client{}
			err := New(opts(client)...).Navigate(context.Background(), srv.URL)
			if !errors.Is(err, page.ErrNavigationTimeout) {
				t.Fatalf("got %v, want ErrNavigationTimeout", err)
			}
			if client.Timeout != 0 {
				t.Errorf("caller client timeout changed to %v", client.Timeout)
			}
		})
	}
}

func TestWaitFor_Missing(t *testing.T) {
	s, err := ParseString(`<html><body><p>maintenance</p></body></html>`, "")
	if err != nil {
		t.Fatal(err)
	}
	err = s.WaitFor(context.Background(), "ul.listing-products", time.Second)
	if !errors.Is(err, page.ErrWaitTimeout) {
		t.Fatalf("got %v, want ErrWaitTimeout", err)
	}
}

func TestText(t *testing.T) {
	s, err := ParseString(`<div class="wcpbc-price"><del>€1,200.00</del> <ins>€0.00</ins></div>`, "")
	if err != nil {
		t.Fatal(err)
	}
	els, _ := s.QueryAll(context.Background(), ".wcpbc-price")
	if len(els) != 1 {
		t.Fatalf("got %d elements", len(els))
	}
	text, _ := els[0].Text()
	if text != "€1,200.00 €0.00" {
		t.Fatalf("text: got %q", text)
	}
}
