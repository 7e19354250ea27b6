// Package assets serves the statically built site from a read-only store.
package assets

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
)

// ErrNotFound is returned by a Store when no asset exists under a name.
var ErrNotFound = errors.New("asset not found")

// Asset is an open asset with the headers it is served with.
type Asset struct {
	Body   io.ReadCloser
	Header http.Header
}

// Store looks up assets by their resolved path, e.g. "/nosotros/index.html".
type Store interface {
	Open(ctx context.Context, name string) (*Asset, error)
}

var extensionPattern = regexp.MustCompile(`\.[A-Za-z0-9]+$`)

// HasExtension reports whether the last path segment ends in a file extension.
func HasExtension(p string) bool {
	return extensionPattern.MatchString(p)
}

// ResolvePath maps a request path to the asset name it is served from.
// Paths without an extension are directories and get index.html appended.
func ResolvePath(p string) string {
	p = path.Clean("/" + p)
	if HasExtension(p) {
		return p
	}
	return strings.TrimSuffix(p, "/") + "/index.html"
}

func contentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	switch ext {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js", ".mjs":
		return "text/javascript; charset=utf-8"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".woff":
		return "font/woff"
	case ".woff2":
		return "font/woff2"
	case ".ttf":
		return "font/ttf"
	case ".otf":
		return "font/otf"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
