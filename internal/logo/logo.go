// Package logo loads the optional image printed in the corner of every
// calendar page.
package logo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"printcal/internal/config"
)

// MaxBytes caps the size of an accepted logo.
const MaxBytes = 5 << 20

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
)

// ErrUnsupported is returned for anything that is not a PNG or JPEG image.
var ErrUnsupported = errors.New("logo: only PNG and JPEG images are supported")

// Logo is a decoded-enough image ready to embed in HTML.
type Logo struct {
	MIME    string
	Width   int
	Height  int
	DataURL string
}

// Load reads a logo from path. An empty path means no logo and no error.
func Load(path string) (*Logo, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("logo: read %s: %w", path, err)
	}
	return FromBytes(data)
}

// FromBytes sniffs and validates data and returns it as a data URL.
func FromBytes(data []byte) (*Logo, error) {
	if len(data) == 0 {
		return nil, errors.New("logo: empty image")
	}
	if len(data) > MaxBytes {
		return nil, fmt.Errorf("logo: image larger than %d bytes", MaxBytes)
	}

	mime := http.DetectContentType(data)
	if mime != MIMEPNG && mime != MIMEJPEG {
		return nil, ErrUnsupported
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("logo: decode %s: %w", mime, err)
	}
	if format != "png" && format != "jpeg" {
		return nil, ErrUnsupported
	}

	return &Logo{
		MIME:    mime,
		Width:   cfg.Width,
		Height:  cfg.Height,
		DataURL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

// Store validates data and writes it to dir as logo.png or logo.jpg,
// replacing any previous logo. It returns the written path.
func Store(dir string, data []byte) (string, error) {
	l, err := FromBytes(data)
	if err != nil {
		return "", err
	}

	name := "logo.png"
	if l.MIME == MIMEJPEG {
		name = "logo.jpg"
	}
	path := filepath.Join(dir, name)
	if err := config.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("logo: write %s: %w", path, err)
	}

	// Drop the other format so a stale file is never picked up.
	for _, other := range []string{"logo.png", "logo.jpg"} {
		if other == name {
			continue
		}
		if err := os.Remove(filepath.Join(dir, other)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return path, nil
}

// Remove deletes any stored logo in dir. A missing logo is not an error.
func Remove(dir string) error {
	for _, name := range []string{"logo.png", "logo.jpg"} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
