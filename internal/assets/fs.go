package assets

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
)

// FSStore serves assets from a file system, typically the build output
// directory opened with os.DirFS.
type FSStore struct {
	fsys fs.FS
}

func NewFSStore(fsys fs.FS) *FSStore {
	return &FSStore{fsys: fsys}
}

func (s *FSStore) Open(ctx context.Context, name string) (*Asset, error) {
	f, err := s.fsys.Open(strings.TrimPrefix(name, "/"))
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrNotFound
	}

	h := http.Header{}
	h.Set("Content-Type", contentType(name))
	h.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	if mt := info.ModTime(); !mt.IsZero() {
		h.Set("Last-Modified", mt.UTC().Format(http.TimeFormat))
	}

	return &Asset{Body: f, Header: h}, nil
}
