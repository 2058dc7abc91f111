package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ErrNotImage is returned when an upload is not an image.
var ErrNotImage = errors.New("upload is not an image")

// Local keeps uploaded pictures under a directory that the HTTP server
// exposes at /storage/.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Dir() string { return l.dir }

// SaveImage stores data under folder with a generated name and returns
// the path relative to the storage root, e.g. "tickets/<uuid>.jpg".
func (l *Local) SaveImage(ctx context.Context, folder string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}

	rel := path.Join(folder, uuid.NewString()+mt.Extension())
	full := filepath.Join(l.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return rel, nil
}

// Remove deletes a stored file; a missing file is not an error.
func (l *Local) Remove(rel string) error {
	err := os.Remove(filepath.Join(l.dir, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
