package segment

import (
	"fmt"

	"github.com/banshee-data/dtsegment/internal/geometry"
)

// Options controls the refinement schedule.
type Options struct {
	// MinMeasurements raises the minimum hit count above MinMeasurements.
	MinMeasurements int
	// PositionPass adds the angle-and-position refinement after the
	// angle-only one.
	PositionPass bool
	// MaxChi2PerDOF rejects fits whose chi2/dof is above it. Zero disables
	// the check, as do fits without degrees of freedom.
	MaxChi2PerDOF float64
}

// Updater runs the fit → refine → fit schedule on segment candidates and
// commits the result only when every step succeeds.
type Updater struct {
	geom    geometry.Provider
	model   DriftModel
	refiner *Refiner
	opts    Options
}

// NewUpdater returns an Updater. geom and model must stay unchanged while
// it is in use; the Updater itself is safe for concurrent use on distinct
// candidates.
func NewUpdater(geom geometry.Provider, model DriftModel, opts Options) *Updater {
	if opts.MinMeasurements < MinMeasurements {
		opts.MinMeasurements = MinMeasurements
	}
	return &Updater{
		geom:    geom,
		model:   model,
		refiner: NewRefiner(geom, model),
		opts:    opts,
	}
}

// Model returns the drift model used for refinement.
func (u *Updater) Model() DriftModel { return u.model }

// Schedule returns the refinement phases Update runs after the initial fit.
func (u *Updater) Schedule() []Phase {
	if !u.model.CanRefine() {
		return nil
	}
	if u.opts.PositionPass {
		return []Phase{PhaseAngleOnly, PhaseAngleAndPosition}
	}
	return []Phase{PhaseAngleOnly}
}

// Fit fits the candidate's current hit positions and commits the result.
func (u *Updater) Fit(c *Candidate) error {
	if err := u.check(c); err != nil {
		return u.fail(c, "fit", err)
	}
	r, err := u.fit(c.SuperLayer, c.Measurements)
	if err != nil {
		return u.fail(c, "fit", err)
	}
	if err := u.accept(r); err != nil {
		return u.fail(c, "fit", err)
	}
	c.commit(r, c.Measurements)
	u.logCommit(c, "fit")
	return nil
}

// Update runs the full schedule: an initial fit on the raw positions, then
// for each phase of Schedule a refinement of every hit followed by a refit.
// On any error the candidate keeps its previous hits and geometry and is
// marked invalid.
func (u *Updater) Update(c *Candidate) error {
	if err := u.check(c); err != nil {
		return u.fail(c, "update", err)
	}
	est, err := u.fit(c.SuperLayer, c.Measurements)
	if err != nil {
		return u.fail(c, "initial fit", err)
	}

	ms := c.Measurements
	for _, phase := range u.Schedule() {
		ms, est, err = u.pass(c.SuperLayer, ms, est, phase)
		if err != nil {
			return u.fail(c, phase.String()+" pass", err)
		}
	}

	if err := u.accept(est); err != nil {
		return u.fail(c, "update", err)
	}
	c.commit(est, ms)
	u.logCommit(c, "update")
	return nil
}

// Refit runs one more refine → fit pass starting from the candidate's
// committed geometry. It is how callers request an extra angle-and-position
// iteration after Update.
func (u *Updater) Refit(c *Candidate, phase Phase) error {
	if !phase.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, phase)
	}
	if !c.Valid {
		return u.fail(c, "refit", fmt.Errorf("%w: no committed fit", ErrNotGood))
	}
	if err := u.check(c); err != nil {
		return u.fail(c, "refit", err)
	}
	est := FitResult{Position: c.Position, Direction: c.Direction}
	ms, est, err := u.pass(c.SuperLayer, c.Measurements, est, phase)
	if err != nil {
		return u.fail(c, phase.String()+" pass", err)
	}
	if err := u.accept(est); err != nil {
		return u.fail(c, "refit", err)
	}
	c.commit(est, ms)
	u.logCommit(c, "refit")
	return nil
}

// UpdateHits recomputes the hit positions from the candidate's committed
// geometry and swaps them in without refitting.
func (u *Updater) UpdateHits(c *Candidate, phase Phase) error {
	if !phase.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, phase)
	}
	refined, err := u.refiner.Refine(c.SuperLayer, c.Measurements, c.Position, c.Direction, phase)
	if err != nil {
		return u.fail(c, "hit update", err)
	}
	c.Measurements = refined
	return nil
}

// FitMeasurements fits ms in the frame of superlayer sl without touching
// any candidate.
func (u *Updater) FitMeasurements(sl geometry.LayerID, ms []Measurement) (FitResult, error) {
	return u.fit(sl.SuperLayerID(), ms)
}

func (u *Updater) check(c *Candidate) error {
	if !c.Good() {
		return fmt.Errorf("%w: %d measurements", ErrNotGood, len(c.Measurements))
	}
	if len(c.Measurements) < u.opts.MinMeasurements {
		return fmt.Errorf("%w: %d measurements, need %d", ErrNotGood, len(c.Measurements), u.opts.MinMeasurements)
	}
	return nil
}

func (u *Updater) accept(r FitResult) error {
	if u.opts.MaxChi2PerDOF <= 0 || r.DOF() <= 0 {
		return nil
	}
	if perDOF := r.Chi2 / float64(r.DOF()); perDOF > u.opts.MaxChi2PerDOF {
		return fmt.Errorf("%w: %.3f > %.3f", ErrChi2Limit, perDOF, u.opts.MaxChi2PerDOF)
	}
	return nil
}

// pass refines ms from est and refits. Nothing is committed.
func (u *Updater) pass(sl geometry.LayerID, ms []Measurement, est FitResult, phase Phase) ([]Measurement, FitResult, error) {
	refined, err := u.refiner.Refine(sl, ms, est.Position, est.Direction, phase)
	if err != nil {
		return nil, FitResult{}, err
	}
	r, err := u.fit(sl, refined)
	if err != nil {
		return nil, FitResult{}, err
	}
	return refined, r, nil
}

// fit maps each hit from its layer frame into the superlayer frame and fits
// local x against local z.
func (u *Updater) fit(sl geometry.LayerID, ms []Measurement) (FitResult, error) {
	x := make([]float64, len(ms))
	y := make([]float64, len(ms))
	sigma := make([]float64, len(ms))
	for i, m := range ms {
		rel, err := geometry.Relative(u.geom, m.Layer, sl)
		if err != nil {
			return FitResult{}, fmt.Errorf("hit %d frame: %w", i+1, err)
		}
		p := rel.ToGlobal(m.Position)
		x[i] = p.Z
		y[i] = p.X
		sigma[i] = m.Sigma()
	}
	l, err := FitLine(x, y, sigma)
	if err != nil {
		return FitResult{}, err
	}
	return l.Result(), nil
}

func (u *Updater) fail(c *Candidate, stage string, err error) error {
	c.Valid = false
	Diagf("segment %s %s: %s failed: %v", c.ID, c.SuperLayer, stage, err)
	return fmt.Errorf("segment %s %s: %w", c.ID, stage, err)
}

func (u *Updater) logCommit(c *Candidate, stage string) {
	Diagf("segment %s %s: %s ok, %d hits, x0=%.4f slope=%.5f chi2=%.3f",
		c.ID, c.SuperLayer, stage, len(c.Measurements), c.Position.X, c.Slope(), c.Chi2)
}
