package monitor

import (
	"image/color"
	"path/filepath"
	"strings"
	"time"
)

// generateColors creates a palette of n distinct colours.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

// MakePlotOutputDir returns a timestamped directory for the plots of one
// run: <baseDir>/<input basename>/<timestamp>.
func MakePlotOutputDir(baseDir, inputFile string, now time.Time) string {
	ts := now.Format("20060102_150405")
	if inputFile == "" {
		return filepath.Join(baseDir, "run_"+ts)
	}
	base := filepath.Base(inputFile)
	return filepath.Join(baseDir, strings.TrimSuffix(base, filepath.Ext(base)), ts)
}
