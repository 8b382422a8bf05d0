// Package debug provides debug helpers for the mesh viewer.
package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Screenshots writes framebuffer captures as PNG files named after the viewed mesh.
type Screenshots struct {
	dir  string
	name string
	now  func() time.Time
}

// NewScreenshots creates a capture handler that writes into dir.
// An empty dir means the current working directory.
func NewScreenshots(dir, meshPath string) *Screenshots {
	name := strings.TrimSuffix(filepath.Base(meshPath), filepath.Ext(meshPath))
	if name == "" || name == "." {
		name = "korori"
	}
	return &Screenshots{dir: dir, name: name, now: time.Now}
}

// Filename returns the path the next capture will be written to.
func (s *Screenshots) Filename() string {
	filename := fmt.Sprintf("%s_%s.png", s.name, s.now().Format("2006-01-02_15-04-05"))
	if s.dir != "" {
		filename = filepath.Join(s.dir, filename)
	}
	return filename
}

// Save encodes bottom-up RGBA pixels, as returned by glReadPixels, into a PNG.
func (s *Screenshots) Save(pixels []byte, width, height int) (string, error) {
	img, err := FlipRGBA(pixels, width, height)
	if err != nil {
		return "", err
	}

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0755); err != nil {
			return "", fmt.Errorf("creating screenshot dir: %w", err)
		}
	}

	filename := s.Filename()
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating screenshot: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}

	return filename, nil
}

// FlipRGBA copies bottom-up RGBA rows into a top-down image.
func FlipRGBA(pixels []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid screenshot size %dx%d", width, height)
	}
	if len(pixels) != width*height*4 {
		return nil, fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * rowSize
		dst := y * img.Stride
		copy(img.Pix[dst:dst+rowSize], pixels[src:src+rowSize])
	}
	return img, nil
}
