package assets

import (
	"path"
	"slices"
	"strings"
)

const (
	CacheImmutable  = "public, max-age=31536000, immutable"
	CacheRevalidate = "public, max-age=0, must-revalidate"
	CacheDefault    = "public, max-age=3600"
)

var (
	immutablePrefixes = []string{"/assets/", "/_astro/"}
	mediaExtensions   = []string{".webp", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".mp4", ".webm"}
	fontExtensions    = []string{".woff", ".woff2", ".ttf", ".otf", ".eot"}
)

// CachePolicy returns the Cache-Control value for a request path. Rules are
// evaluated in order and the first match wins.
func CachePolicy(requestPath string) string {
	for _, prefix := range immutablePrefixes {
		if strings.HasPrefix(requestPath, prefix) {
			return CacheImmutable
		}
	}

	ext := strings.ToLower(path.Ext(requestPath))
	if HasExtension(requestPath) && (slices.Contains(mediaExtensions, ext) || slices.Contains(fontExtensions, ext)) {
		return CacheImmutable
	}

	if strings.HasSuffix(requestPath, ".html") || requestPath == "/" || !HasExtension(requestPath) {
		return CacheRevalidate
	}

	return CacheDefault
}
