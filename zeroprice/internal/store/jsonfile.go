package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hazyhaar/solarwatch/listing"
)

// DefaultPath is the JSON store used when none is configured.
const DefaultPath = "results.json"

// JSONFile stores the collection as a pretty-printed JSON array.
type JSONFile struct {
	path   string
	logger *slog.Logger
}

// JSONOption configures a JSONFile.
type JSONOption func(*JSONFile)

// WithLogger sets the logger used for recovered load problems.
func WithLogger(l *slog.Logger) JSONOption {
	return func(f *JSONFile) { f.logger = l }
}

// NewJSONFile returns a store backed by path.
func NewJSONFile(path string, opts ...JSONOption) *JSONFile {
	if path == "" {
		path = DefaultPath
	}
	f := &JSONFile{path: path, logger: slog.Default()}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Path returns the backing file path.
func (f *JSONFile) Path() string { return f.path }

// Load reads the file. Unreadable or malformed content is logged and
// treated as an empty collection: the next Save rewrites it.
func (f *JSONFile) Load(_ context.Context) ([]listing.Entry, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []listing.Entry{}, nil
	}
	if err != nil {
		f.logger.Warn("store: unreadable, starting empty", "path", f.path, "error", err)
		return []listing.Entry{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		f.logger.Warn("store: not a JSON array, starting empty", "path", f.path, "error", err)
		return []listing.Entry{}, nil
	}

	entries := make([]listing.Entry, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		e, ok := decodeEntry(r)
		if !ok {
			dropped++
			continue
		}
		entries = append(entries, e)
	}
	if dropped > 0 {
		f.logger.Warn("store: dropped malformed entries", "path", f.path, "count", dropped)
	}
	return listing.Dedupe(entries), nil
}

// decodeEntry accepts an object whose link is a non-empty string. Title
// and price are kept when they are strings.
func decodeEntry(r json.RawMessage) (listing.Entry, bool) {
	var obj map[string]any
	if err := json.Unmarshal(r, &obj); err != nil || obj == nil {
		return listing.Entry{}, false
	}
	link, _ := obj["link"].(string)
	if link == "" {
		return listing.Entry{}, false
	}
	title, _ := obj["title"].(string)
	price, _ := obj["price"].(string)
	return listing.Entry{Title: title, Price: price, Link: link}, true
}

// Save writes entries, one per link, to a temp file next to the target
// and renames it into place.
func (f *JSONFile) Save(_ context.Context, entries []listing.Entry) error {
	entries = listing.Dedupe(entries)
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}

var _ Store = (*JSONFile)(nil)
