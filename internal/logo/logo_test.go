package logo

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

func TestFromBytes(t *testing.T) {
	t.Run("png", func(t *testing.T) {
		l, err := FromBytes(pngBytes(t))
		require.NoError(t, err)
		assert.Equal(t, MIMEPNG, l.MIME)
		assert.Equal(t, 4, l.Width)
		assert.Equal(t, 2, l.Height)
		assert.True(t, strings.HasPrefix(l.DataURL, "data:image/png;base64,"))
	})

	t.Run("jpeg", func(t *testing.T) {
		l, err := FromBytes(jpegBytes(t))
		require.NoError(t, err)
		assert.Equal(t, MIMEJPEG, l.MIME)
	})

	t.Run("gif rejected", func(t *testing.T) {
		_, err := FromBytes([]byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"))
		assert.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("text rejected", func(t *testing.T) {
		_, err := FromBytes([]byte("hello"))
		assert.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := FromBytes(nil)
		assert.Error(t, err)
	})

	t.Run("truncated png", func(t *testing.T) {
		_, err := FromBytes(pngBytes(t)[:12])
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	l, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, l)

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t), 0o644))
	l, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, MIMEPNG, l.MIME)
}

func TestStoreAndRemove(t *testing.T) {
	dir := t.TempDir()

	path, err := Store(dir, pngBytes(t))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logo.png"), path)
	assert.FileExists(t, path)

	path, err = Store(dir, jpegBytes(t))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logo.jpg"), path)
	assert.NoFileExists(t, filepath.Join(dir, "logo.png"))

	_, err = Store(dir, []byte("not an image"))
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.FileExists(t, path, "failed upload keeps the previous logo")

	require.NoError(t, Remove(dir))
	assert.NoFileExists(t, path)
	require.NoError(t, Remove(dir))
}
