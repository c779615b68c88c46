package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// ScreenshotName returns dir/prefix_<timestamp>.png.
func ScreenshotName(dir, prefix string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.png", prefix, now.Format("2006-01-02_15-04-05")))
}

// SavePNG writes img to path, creating the parent directory.
func SavePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return f.Close()
}
