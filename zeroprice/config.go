package zeroprice

import (
	"github.com/hazyhaar/solarwatch/zeroprice/internal/config"
)

// Config is the top-level zeroprice configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// CrawlConfig bounds the per-URL waits.
type CrawlConfig = config.CrawlConfig

// StoreConfig selects the result store.
type StoreConfig = config.StoreConfig

// Fetch modes and store backends accepted in Config.
const (
	FetchBrowser  = config.FetchBrowser
	FetchHTTP     = config.FetchHTTP
	BackendJSON   = config.BackendJSON
	BackendSQLite = config.BackendSQLite
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config { return config.Default() }

// LoadConfig reads the optional YAML file at path and overlays the
// EMAIL_* and ZEROPRICE_WEBHOOK_URL environment variables.
func LoadConfig(path string, lookup func(string) (string, bool)) (*Config, error) {
	return config.Load(path, lookup)
}

// DefaultTargets lists the shop pages crawled when no targets are configured.
func DefaultTargets() []string { return config.DefaultTargets() }
