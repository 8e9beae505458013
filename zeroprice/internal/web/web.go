// Package web serves a read-only view of the result store.
package web

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/solarwatch/listing"
	"github.com/hazyhaar/solarwatch/zeroprice/internal/store"
)

// NewRouter builds the viewer routes:
//
//	GET /health    {"status":"ok"}
//	GET /listings  stored entries as a JSON array
//	GET /          stored entries as an HTML table
func NewRouter(st store.Store, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{store: st, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(headToGet)
	r.Use(securityHeaders)
	r.Use(h.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/listings", h.listings)
	r.Get("/", h.index)
	return r
}

type handler struct {
	store  store.Store
	logger *slog.Logger
}

func (h *handler) load(w http.ResponseWriter, r *http.Request) ([]listing.Entry, bool) {
	entries, err := h.store.Load(r.Context())
	if err != nil {
		h.logger.Error("web: load store", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
		return nil, false
	}
	return entries, true
}

func (h *handler) listings(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Zero-price listings</title></head>
<body>
<h1>Zero-price listings ({{len .}})</h1>
{{if .}}<table>
<tr><th>Title</th><th>Price</th><th>Link</th></tr>
{{range .}}<tr><td>{{.Title}}</td><td>{{.Price}}</td><td><a href="{{.Link}}">{{.Link}}</a></td></tr>
{{end}}</table>{{else}}<p>Nothing found yet.</p>{{end}}
</body></html>
`))

func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, entries); err != nil {
		h.logger.Error("web: render", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
