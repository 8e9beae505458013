package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func env(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.FetchMode != FetchBrowser || cfg.Store.Backend != BackendJSON || cfg.Store.Path != "results.json" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Crawl.PageLoadTimeout != 60*time.Second || cfg.Crawl.WaitTimeout != 30*time.Second {
		t.Errorf("timeouts = %+v", cfg.Crawl)
	}
	if len(cfg.Targets) != 13 {
		t.Fatalf("got %d targets, want 13", len(cfg.Targets))
	}
	if cfg.Targets[0] != "https://www.solar-guitars.com/shop/page/1/" {
		t.Errorf("first target = %s", cfg.Targets[0])
	}
	if cfg.Targets[9] != "https://www.solar-guitars.com/shop/page/10/" {
		t.Errorf("tenth target = %s", cfg.Targets[9])
	}
	if cfg.Targets[12] != "https://www.solar-guitars.com/categorie-produit/accessories/" {
		t.Errorf("last target = %s", cfg.Targets[12])
	}
	if cfg.Selectors.Tile != "ul.listing-products li.listing-product" {
		t.Errorf("tile selector = %q", cfg.Selectors.Tile)
	}
}

func TestTruthy(t *testing.T) {
	for _, s := range []string{"1", "true", "TRUE", "Yes", "on", " on "} {
		if !Truthy(s) {
			t.Errorf("Truthy(%q) = false", s)
		}
	}
	for _, s := range []string{"", "0", "false", "no", "off", "y", "enabled"} {
		if Truthy(s) {
			t.Errorf("Truthy(%q) = true", s)
		}
	}
}

func TestLoadFile_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zeroprice.yaml")
	yml := `
fetch_mode: http
crawl:
  page_load_timeout: 5s
  max_scrolls: 3
targets:
  - https://shop.example/a/
selectors:
  title: h2.name
store:
  backend: sqlite
email:
  to: me@example.com
  use_tls: false
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.FetchMode != FetchHTTP {
		t.Errorf("FetchMode = %q", cfg.FetchMode)
	}
	if cfg.Crawl.PageLoadTimeout != 5*time.Second || cfg.Crawl.MaxScrolls != 3 {
		t.Errorf("crawl = %+v", cfg.Crawl)
	}
	if cfg.Crawl.WaitTimeout != 30*time.Second {
		t.Errorf("WaitTimeout default lost: %v", cfg.Crawl.WaitTimeout)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0] != "https://shop.example/a/" {
		t.Errorf("targets = %v", cfg.Targets)
	}
	if cfg.Selectors.Title != "h2.name" || cfg.Selectors.Link != "a.totallink" {
		t.Errorf("selectors = %+v", cfg.Selectors)
	}
	if cfg.Store.Path != "results.db" {
		t.Errorf("sqlite path = %q", cfg.Store.Path)
	}
	if s := cfg.Email.Settings(); s.UseTLS || s.To != "me@example.com" || s.Port != 587 {
		t.Errorf("email settings = %+v", s)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("targets: [unclosed"), 0o644)
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected parse error")
	}

	mode := filepath.Join(dir, "mode.yaml")
	os.WriteFile(mode, []byte("fetch_mode: carrier-pigeon\n"), 0o644)
	if _, err := LoadFile(mode); err == nil {
		t.Error("expected fetch_mode error")
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg, err := Load("", env(map[string]string{
		"EMAIL_HOST":            "smtp.example.com",
		"EMAIL_PORT":            "2525",
		"EMAIL_USER":            "bot@example.com",
		"EMAIL_PASSWORD":        "secret",
		"EMAIL_TO":              "me@example.com",
		"EMAIL_USE_TLS":         "off",
		"ZEROPRICE_WEBHOOK_URL": "https://hooks.example.com/x",
	}))
	if err != nil {
		t.Fatal(err)
	}
	s := cfg.Email.Settings()
	if s.Host != "smtp.example.com" || s.Port != 2525 || s.From != "bot@example.com" || s.UseTLS {
		t.Errorf("settings = %+v", s)
	}
	if !s.Ready() {
		t.Error("settings should be ready")
	}
	if cfg.Webhook.URL != "https://hooks.example.com/x" {
		t.Errorf("webhook = %q", cfg.Webhook.URL)
	}
}

func TestApplyEnv_DefaultsAndBadPort(t *testing.T) {
	cfg, err := Load("", env(nil))
	if err != nil {
		t.Fatal(err)
	}
	s := cfg.Email.Settings()
	if !s.UseTLS || s.Host != "smtp.gmail.com" || s.Ready() {
		t.Errorf("settings = %+v", s)
	}

	if _, err := Load("", env(map[string]string{"EMAIL_PORT": "smtp"})); err == nil {
		t.Error("expected bad port error")
	}
}

func TestApplyEnv_EmptyTLSDisables(t *testing.T) {
	// WHAT: EMAIL_USE_TLS set but empty means plain SMTP; unset means TLS.
	// WHY: only a truthy value enables STARTTLS once the variable exists.
	cfg, err := Load("", env(map[string]string{"EMAIL_USE_TLS": ""}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Email.Settings().UseTLS {
		t.Error("empty EMAIL_USE_TLS should disable TLS")
	}

	cfg, err = Load("", env(map[string]string{"EMAIL_USE_TLS": "yes"}))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Email.Settings().UseTLS {
		t.Error("EMAIL_USE_TLS=yes should enable TLS")
	}
}

func TestApplyEnv_PasswordVerbatim(t *testing.T) {
	cfg, err := Load("", env(map[string]string{"EMAIL_PASSWORD": "  pass phrase "}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Email.Password != "  pass phrase " {
		t.Errorf("password = %q, want untrimmed", cfg.Email.Password)
	}
}
