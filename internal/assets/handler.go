package assets

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
)

const notFoundPage = "/404.html"

// Handler serves GET and HEAD requests from a Store.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	name := ResolvePath(r.URL.Path)

	a, err := h.store.Open(ctx, name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.ErrorContext(ctx, "asset lookup failed", "name", name, "error", err)
		}
		h.notFound(w, r)
		return
	}

	a.Header.Set("Cache-Control", CachePolicy(r.URL.Path))
	write(w, r, http.StatusOK, a)
}

// notFound serves the site's 404 document with its own headers, or a plain
// "Not Found" when the document is missing too.
func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	a, err := h.store.Open(ctx, notFoundPage)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.ErrorContext(ctx, "404 page lookup failed", "error", err)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		if r.Method != http.MethodHead {
			io.WriteString(w, "Not Found")
		}
		return
	}

	write(w, r, http.StatusNotFound, a)
}

func write(w http.ResponseWriter, r *http.Request, status int, a *Asset) {
	defer a.Body.Close()

	for k, v := range a.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, a.Body); err != nil {
		slog.WarnContext(r.Context(), "asset write interrupted", "path", r.URL.Path, "error", err)
	}
}
