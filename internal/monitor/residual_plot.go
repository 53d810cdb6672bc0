// Package monitor renders diagnostic plots of segment fit quality.
package monitor

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/dtsegment/internal/segment"
)

// ResidualPlotter collects hit residuals and fit quality from committed
// segments and writes histograms after a run.
type ResidualPlotter struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string
	updater   *segment.Updater
	bins      int

	pulls   plotter.Values
	chi2DOF plotter.Values
	// byLayer holds (depth, residual) points keyed by layer number.
	byLayer map[int]plotter.XYs
	skipped int
}

// NewResidualPlotter returns a plotter that evaluates residuals with u.
func NewResidualPlotter(u *segment.Updater) *ResidualPlotter {
	return &ResidualPlotter{
		updater: u,
		bins:    40,
		byLayer: make(map[int]plotter.XYs),
	}
}

// Start clears collected data and enables recording into outputDir.
func (rp *ResidualPlotter) Start(outputDir string) error {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	rp.outputDir = outputDir
	rp.enabled = true
	rp.pulls = nil
	rp.chi2DOF = nil
	rp.byLayer = make(map[int]plotter.XYs)
	rp.skipped = 0
	return nil
}

// Stop disables recording. Call GeneratePlots to produce output files.
func (rp *ResidualPlotter) Stop() {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.enabled = false
}

// IsEnabled returns true if the plotter is currently recording.
func (rp *ResidualPlotter) IsEnabled() bool {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return rp.enabled
}

// Record adds the residuals of c. Candidates without a committed fit are
// counted and skipped.
func (rp *ResidualPlotter) Record(c *segment.Candidate) error {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if !rp.enabled {
		return nil
	}
	if !c.Valid {
		rp.skipped++
		return nil
	}
	res, err := rp.updater.Residuals(c)
	if err != nil {
		return err
	}
	for _, r := range res {
		rp.pulls = append(rp.pulls, r.Pull)
		rp.byLayer[r.Layer.Layer] = append(rp.byLayer[r.Layer.Layer], plotter.XY{X: r.Depth, Y: r.Residual})
	}
	if c.DOF() > 0 {
		rp.chi2DOF = append(rp.chi2DOF, c.Chi2PerDOF())
	}
	return nil
}

// Counts returns the number of recorded hits and segments, and the number
// of skipped candidates.
func (rp *ResidualPlotter) Counts() (hits, segments, skipped int) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return len(rp.pulls), len(rp.chi2DOF), rp.skipped
}

// GeneratePlots writes the pull and chi²/dof histograms and the residual
// scatter. Returns the number of files written.
func (rp *ResidualPlotter) GeneratePlots() (int, error) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if rp.outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}
	if len(rp.pulls) == 0 {
		return 0, nil
	}

	count := 0
	if err := rp.histogram(rp.pulls, "Hit pulls", "Residual / σ", "pulls.png", true); err != nil {
		return count, err
	}
	count++

	if len(rp.chi2DOF) > 0 {
		if err := rp.histogram(rp.chi2DOF, "Segment χ²/dof", "χ²/dof", "chi2_per_dof.png", false); err != nil {
			return count, err
		}
		count++
	}

	if err := rp.residualScatter(); err != nil {
		return count, err
	}
	count++

	return count, nil
}

func (rp *ResidualPlotter) histogram(vals plotter.Values, title, xLabel, name string, unitGauss bool) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%d entries)", title, len(vals))
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Entries"

	h, err := plotter.NewHist(vals, rp.bins)
	if err != nil {
		return fmt.Errorf("%s histogram: %w", name, err)
	}
	h.FillColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(h)

	if unitGauss {
		// Expected shape for correctly estimated errors, scaled to the
		// histogram's bin width.
		width := h.Bins[0].Max - h.Bins[0].Min
		norm := float64(len(vals)) * width / math.Sqrt(2*math.Pi)
		g := plotter.NewFunction(func(x float64) float64 { return norm * math.Exp(-x*x/2) })
		g.Color = color.RGBA{R: 200, A: 255}
		g.Width = vg.Points(1)
		p.Add(g)
		p.Legend.Add("N(0,1)", g)
		p.Legend.Top = true
	}

	file := filepath.Join(rp.outputDir, name)
	if err := p.Save(8*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

func (rp *ResidualPlotter) residualScatter() error {
	p := plot.New()
	p.Title.Text = "Hit residuals by depth"
	p.X.Label.Text = "Superlayer local z (cm)"
	p.Y.Label.Text = "Residual (cm)"

	layers := make([]int, 0, len(rp.byLayer))
	for l := range rp.byLayer {
		layers = append(layers, l)
	}
	sort.Ints(layers)

	colors := generateColors(len(layers))
	for i, l := range layers {
		s, err := plotter.NewScatter(rp.byLayer[l])
		if err != nil {
			return fmt.Errorf("layer %d scatter: %w", l, err)
		}
		s.GlyphStyle.Color = colors[i]
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("layer %d", l), s)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	file := filepath.Join(rp.outputDir, "residuals_by_layer.png")
	if err := p.Save(10*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save residual scatter: %w", err)
	}
	return nil
}
