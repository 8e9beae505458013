// Package config handles zeroprice configuration from a YAML file and the
// EMAIL_* / ZEROPRICE_* environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/solarwatch/zeroprice/internal/extract"
	"github.com/hazyhaar/solarwatch/zeroprice/internal/notify"
)

// Fetch modes.
const (
	FetchBrowser = "browser"
	FetchHTTP    = "http"
)

// Store backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config is the top-level zeroprice configuration.
type Config struct {
	FetchMode string            `yaml:"fetch_mode"` // browser | http
	Browser   BrowserConfig     `yaml:"browser"`
	Crawl     CrawlConfig       `yaml:"crawl"`
	Targets   []string          `yaml:"targets"`
	Selectors extract.Selectors `yaml:"selectors"`
	Store     StoreConfig       `yaml:"store"`
	Email     EmailConfig       `yaml:"email"`
	Webhook   WebhookConfig     `yaml:"webhook"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`
	Mode             string   `yaml:"mode"` // headless | headful
	ResourceBlocking []string `yaml:"resource_blocking"`
	XvfbDisplay      string   `yaml:"xvfb_display"`
	NoSandbox        bool     `yaml:"no_sandbox"`
}

// CrawlConfig bounds the per-URL waits.
type CrawlConfig struct {
	PageLoadTimeout time.Duration `yaml:"page_load_timeout"`
	WaitTimeout     time.Duration `yaml:"wait_timeout"`
	ScrollPause     time.Duration `yaml:"scroll_pause"`
	MaxScrolls      int           `yaml:"max_scrolls"`
	UserAgent       string        `yaml:"user_agent"` // http mode only
}

// StoreConfig selects the result store.
type StoreConfig struct {
	Backend string `yaml:"backend"` // json | sqlite
	Path    string `yaml:"path"`
}

// EmailConfig holds SMTP settings. Environment variables override it.
type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	UseTLS   *bool  `yaml:"use_tls"`
}

// WebhookConfig enables the webhook notifier when URL is set.
type WebhookConfig struct {
	URL     string `yaml:"url"`
	Retries int    `yaml:"retries"`
}

// Settings converts to notifier settings. TLS defaults to on.
func (e EmailConfig) Settings() notify.Settings {
	tls := true
	if e.UseTLS != nil {
		tls = *e.UseTLS
	}
	return notify.Settings{
		Host:     e.Host,
		Port:     e.Port,
		User:     e.User,
		Password: e.Password,
		From:     e.From,
		To:       e.To,
		UseTLS:   tls,
	}.WithDefaults()
}

const shopBase = "https://www.solar-guitars.com"

// DefaultTargets lists shop pages 1 to 10 followed by the pedals, outlet
// and accessories categories.
func DefaultTargets() []string {
	targets := make([]string, 0, 13)
	for p := 1; p <= 10; p++ {
		targets = append(targets, fmt.Sprintf("%s/shop/page/%d/", shopBase, p))
	}
	return append(targets,
		shopBase+"/categorie-produit/pedals/",
		shopBase+"/outlet-store/",
		shopBase+"/categorie-produit/accessories/",
	)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, cfg.validate()
}

// Load reads path (empty = defaults only) and overlays the environment.
func Load(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.FetchMode == "" {
		c.FetchMode = FetchBrowser
	}
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headless"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Crawl.PageLoadTimeout <= 0 {
		c.Crawl.PageLoadTimeout = 60 * time.Second
	}
	if c.Crawl.WaitTimeout <= 0 {
		c.Crawl.WaitTimeout = 30 * time.Second
	}
	if c.Crawl.ScrollPause <= 0 {
		c.Crawl.ScrollPause = 750 * time.Millisecond
	}
	if c.Crawl.MaxScrolls <= 0 {
		c.Crawl.MaxScrolls = 50
	}
	if len(c.Targets) == 0 {
		c.Targets = DefaultTargets()
	}
	c.Selectors = c.Selectors.WithDefaults()
	if c.Store.Backend == "" {
		c.Store.Backend = BackendJSON
	}
	if c.Store.Path == "" {
		if c.Store.Backend == BackendSQLite {
			c.Store.Path = "results.db"
		} else {
			c.Store.Path = "results.json"
		}
	}
}

func (c *Config) validate() error {
	switch c.FetchMode {
	case FetchBrowser, FetchHTTP:
	default:
		return fmt.Errorf("config: unknown fetch_mode %q", c.FetchMode)
	}
	switch c.Store.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// LookupFunc reports the value of an environment variable and whether it
// is set. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides email and webhook settings from the environment.
// Unset or empty variables leave the file values in place, except
// EMAIL_USE_TLS: once set, any value that is not truthy (the empty string
// included) turns TLS off. EMAIL_PASSWORD is taken verbatim.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	set := func(dst *string, key string) {
		v, _ := lookup(key)
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&c.Email.Host, "EMAIL_HOST")
	set(&c.Email.User, "EMAIL_USER")
	set(&c.Email.From, "EMAIL_FROM")
	set(&c.Email.To, "EMAIL_TO")
	set(&c.Webhook.URL, "ZEROPRICE_WEBHOOK_URL")

	if v, _ := lookup("EMAIL_PASSWORD"); v != "" {
		c.Email.Password = v
	}
	if v, _ := lookup("EMAIL_PORT"); strings.TrimSpace(v) != "" {
		v = strings.TrimSpace(v)
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("config: EMAIL_PORT %q is not a valid port", v)
		}
		c.Email.Port = port
	}
	if v, ok := lookup("EMAIL_USE_TLS"); ok {
		tls := Truthy(v)
		c.Email.UseTLS = &tls
	}
	return nil
}

// Truthy reports whether s is one of 1, true, yes, on (any case).
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
