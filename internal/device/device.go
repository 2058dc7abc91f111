package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fieldtech/internal/config"
	"fieldtech/internal/lifecycle"
)

// Locator reports a configured device position. Without one it behaves
// like a denied location permission.
type Locator struct {
	latitude  *float64
	longitude *float64
}

func NewLocator(cfg config.DeviceConfig) *Locator {
	return &Locator{latitude: cfg.Latitude, longitude: cfg.Longitude}
}

func (l *Locator) RequestPermission(ctx context.Context) (bool, error) {
	return l.latitude != nil && l.longitude != nil, nil
}

func (l *Locator) CurrentPosition(ctx context.Context) (lifecycle.Position, error) {
	if l.latitude == nil || l.longitude == nil {
		return lifecycle.Position{}, lifecycle.ErrPermissionDenied
	}
	return lifecycle.Position{Latitude: *l.latitude, Longitude: *l.longitude}, nil
}

// FilePicker picks pictures that were named up front, keyed by label
// ("Cause", "Reading"). A label with no file is a cancelled pick.
type FilePicker struct {
	dir   string
	files map[string]string
}

func NewFilePicker(dir string, files map[string]string) *FilePicker {
	return &FilePicker{dir: dir, files: files}
}

func (p *FilePicker) Pick(ctx context.Context, label string) (string, bool, error) {
	name := p.files[label]
	if name == "" {
		return "", false, nil
	}

	path := name
	if !filepath.IsAbs(path) && p.dir != "" {
		path = filepath.Join(p.dir, path)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return "", false, lifecycle.ErrPermissionDenied
		}
		return "", false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", false, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("%s is a directory", path)
	}
	return path, true, nil
}
