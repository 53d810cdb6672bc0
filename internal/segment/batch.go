package segment

import (
	"context"
	"errors"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Batch updates many independent candidates on a bounded worker pool.
type Batch struct {
	Updater *Updater
	Workers int // <= 0 uses GOMAXPROCS
}

// BatchReport summarises a Batch run.
type BatchReport struct {
	Total       int
	Fitted      int
	NotGood     int
	Degenerate  int
	HitFailures int
	HighChi2    int
	Other       int
	Failed      []uuid.UUID // in input order
}

// Dropped returns the number of candidates that did not get a fit.
func (r BatchReport) Dropped() int { return r.Total - r.Fitted }

// Run calls Updater.Update on every candidate. Failed candidates are marked
// invalid and counted; they never stop the batch. Cancellation is checked
// between candidates, so a canceled run leaves every candidate either fully
// updated or untouched, and returns ctx's error.
func (b *Batch) Run(ctx context.Context, cands []*Candidate) (BatchReport, error) {
	workers := b.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	errs := make([]error, len(cands))
	done := make([]bool, len(cands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range cands {
		if gctx.Err() != nil {
			break
		}
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			errs[i] = b.Updater.Update(c)
			done[i] = true
			return nil
		})
	}
	waitErr := g.Wait()

	report := BatchReport{Total: len(cands)}
	for i, c := range cands {
		if !done[i] {
			continue
		}
		err := errs[i]
		switch {
		case err == nil:
			report.Fitted++
			continue
		case errors.Is(err, ErrNotGood):
			report.NotGood++
		case errors.Is(err, ErrDegenerateFit):
			report.Degenerate++
		case errors.Is(err, ErrHitUpdate):
			report.HitFailures++
		case errors.Is(err, ErrChi2Limit):
			report.HighChi2++
		default:
			report.Other++
		}
		report.Failed = append(report.Failed, c.ID)
	}

	if report.Dropped() > 0 {
		Opsf("batch: %d/%d segments fitted (not good %d, degenerate %d, hit failures %d, high chi2 %d, other %d)",
			report.Fitted, report.Total, report.NotGood, report.Degenerate, report.HitFailures, report.HighChi2, report.Other)
	}
	if waitErr != nil {
		return report, waitErr
	}
	return report, ctx.Err()
}
