package segment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/dtsegment/internal/geometry"
)

// Residual is one hit's distance from the committed segment, measured
// along the superlayer's local x at the hit's depth.
type Residual struct {
	Layer     geometry.LayerID
	Wire      int
	Depth     float64 // superlayer local z
	Measured  float64 // superlayer local x
	Predicted float64
	Residual  float64 // Measured - Predicted
	Pull      float64 // Residual / sigma
}

// Residuals evaluates every hit of a committed candidate against its line.
func (u *Updater) Residuals(c *Candidate) ([]Residual, error) {
	if !c.Valid {
		return nil, fmt.Errorf("%w: no committed fit", ErrNotGood)
	}
	slope, intercept := c.Slope(), c.Position.X
	out := make([]Residual, 0, len(c.Measurements))
	for _, m := range c.Measurements {
		rel, err := geometry.Relative(u.geom, m.Layer, c.SuperLayer)
		if err != nil {
			return nil, err
		}
		p := rel.ToGlobal(m.Position)
		pred := intercept + slope*p.Z
		res := Residual{
			Layer:     m.Layer,
			Wire:      m.Wire,
			Depth:     p.Z,
			Measured:  p.X,
			Predicted: pred,
			Residual:  p.X - pred,
		}
		if s := m.Sigma(); s > 0 {
			res.Pull = res.Residual / s
		}
		out = append(out, res)
	}
	return out, nil
}

// Summary aggregates residuals over many segments.
type Summary struct {
	Segments       int
	Hits           int
	PullMean       float64
	PullStdDev     float64
	ResidualRMS    float64
	MeanChi2PerDOF float64
}

// Summarize aggregates the residuals and fit quality of committed candidates.
// Invalid candidates are skipped.
func (u *Updater) Summarize(cands []*Candidate) (Summary, error) {
	var (
		s       Summary
		pulls   []float64
		sumSq   float64
		chi2DOF []float64
	)
	for _, c := range cands {
		if !c.Valid {
			continue
		}
		res, err := u.Residuals(c)
		if err != nil {
			return Summary{}, err
		}
		s.Segments++
		for _, r := range res {
			pulls = append(pulls, r.Pull)
			sumSq += r.Residual * r.Residual
		}
		if c.DOF() > 0 {
			chi2DOF = append(chi2DOF, c.Chi2PerDOF())
		}
	}
	s.Hits = len(pulls)
	if s.Hits > 0 {
		s.ResidualRMS = math.Sqrt(sumSq / float64(s.Hits))
		s.PullMean = stat.Mean(pulls, nil)
	}
	if s.Hits > 1 {
		s.PullStdDev = stat.StdDev(pulls, nil)
	}
	if len(chi2DOF) > 0 {
		s.MeanChi2PerDOF = stat.Mean(chi2DOF, nil)
	}
	return s, nil
}
