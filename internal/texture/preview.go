package texture

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// DefaultPreviewSize bounds the longer edge of a preview.
const DefaultPreviewSize = 128

// Thumbnail scales img so that its longer edge is at most size, keeping the
// aspect ratio. Smaller images are returned unchanged.
func Thumbnail(img *image.NRGBA, size int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if size <= 0 || (w <= size && h <= size) {
		return img
	}
	if w >= h {
		h = max(1, h*size/w)
		w = size
	} else {
		w = max(1, w*size/h)
		h = size
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodePreview writes img as lossless WebP.
func EncodePreview(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("texture: encode webp: %w", err)
	}
	return nil
}

// WritePreview loads src, scales it to size and writes dir/<stem>.webp.
// It returns the written path.
func WritePreview(src, dir string, size int) (string, error) {
	img, err := Load(src)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("texture: create %s: %w", dir, err)
	}
	base := filepath.Base(src)
	out := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".webp")
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("texture: create %s: %w", out, err)
	}
	if err := EncodePreview(f, Thumbnail(img, size)); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("texture: close %s: %w", out, err)
	}
	return out, nil
}
