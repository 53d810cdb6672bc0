package segmentdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/dtsegment/internal/geometry"
	"github.com/banshee-data/dtsegment/internal/segment"
)

var (
	// ErrNotFound is returned when no segment has the requested id.
	ErrNotFound = errors.New("segment not found")
	// ErrInvalidSegment is returned when storing a candidate without a
	// committed fit.
	ErrInvalidSegment = errors.New("segment has no committed fit")
)

// InsertSegment stores a fitted candidate and its hits in one transaction.
// Storing the same id again replaces the previous row and hits.
func (db *DB) InsertSegment(ctx context.Context, c *segment.Candidate) error {
	if !c.Valid || c.Covariance == nil {
		return fmt.Errorf("%w: %s", ErrInvalidSegment, c.ID)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert segment: %w", err)
	}
	defer tx.Rollback()

	id := c.ID.String()
	if _, err := tx.ExecContext(ctx, `DELETE FROM dt_segments WHERE segment_id = ?`, id); err != nil {
		return fmt.Errorf("replace segment %s: %w", id, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dt_segments (
			segment_id, wheel, station, sector, superlayer,
			pos_x, pos_y, pos_z, dir_x, dir_y, dir_z,
			var_slope, cov_slope_int, var_intercept,
			chi2, hit_count, created_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		c.SuperLayer.Wheel, c.SuperLayer.Station, c.SuperLayer.Sector, c.SuperLayer.SuperLayer,
		c.Position.X, c.Position.Y, c.Position.Z,
		c.Direction.X, c.Direction.Y, c.Direction.Z,
		c.Covariance.At(0, 0), c.Covariance.At(0, 1), c.Covariance.At(1, 1),
		c.Chi2, len(c.Measurements), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert segment %s: %w", id, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dt_segment_hits (
			segment_id, hit_index, layer, wire, drift_time_ns, side,
			pos_x, pos_y, pos_z, variance
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare hit insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range c.Measurements {
		_, err := stmt.ExecContext(ctx,
			id, i, m.Layer.Layer, m.Wire, m.DriftTime, int(m.Side),
			m.Position.X, m.Position.Y, m.Position.Z, m.Variance,
		)
		if err != nil {
			return fmt.Errorf("insert hit %d of segment %s: %w", i, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit segment %s: %w", id, err)
	}
	return nil
}

const segmentColumns = `
	segment_id, wheel, station, sector, superlayer,
	pos_x, pos_y, pos_z, dir_x, dir_y, dir_z,
	var_slope, cov_slope_int, var_intercept, chi2`

// GetSegment loads a segment and its hits.
func (db *DB) GetSegment(ctx context.Context, id uuid.UUID) (*segment.Candidate, error) {
	row := db.QueryRowContext(ctx, `SELECT `+segmentColumns+` FROM dt_segments WHERE segment_id = ?`, id.String())
	c, err := scanSegment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if err := db.loadHits(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListSegments returns stored segments in insertion order. A non-nil sl
// restricts the result to that superlayer. limit <= 0 means no limit.
func (db *DB) ListSegments(ctx context.Context, sl *geometry.LayerID, limit int) ([]*segment.Candidate, error) {
	var (
		where []string
		args  []interface{}
	)
	if sl != nil {
		id := sl.SuperLayerID()
		where = append(where, "wheel = ? AND station = ? AND sector = ? AND superlayer = ?")
		args = append(args, id.Wheel, id.Station, id.Sector, id.SuperLayer)
	}

	query := `SELECT ` + segmentColumns + ` FROM dt_segments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_unix_nanos, rowid"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	var out []*segment.Candidate
	for rows.Next() {
		c, err := scanSegment(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Close before loading hits: the pool holds a single connection.
	rows.Close()

	for _, c := range out {
		if err := db.loadHits(ctx, c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DeleteSegment removes a segment and its hits.
func (db *DB) DeleteSegment(ctx context.Context, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM dt_segments WHERE segment_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete segment %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete segment %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSegment(s scanner) (*segment.Candidate, error) {
	var (
		c                 segment.Candidate
		id                string
		varS, covSI, varI float64
	)
	err := s.Scan(
		&id,
		&c.SuperLayer.Wheel, &c.SuperLayer.Station, &c.SuperLayer.Sector, &c.SuperLayer.SuperLayer,
		&c.Position.X, &c.Position.Y, &c.Position.Z,
		&c.Direction.X, &c.Direction.Y, &c.Direction.Z,
		&varS, &covSI, &varI, &c.Chi2,
	)
	if err != nil {
		return nil, err
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("segment id %q: %w", id, err)
	}
	c.Covariance = mat.NewSymDense(2, []float64{varS, covSI, covSI, varI})
	c.Valid = true
	return &c, nil
}

func (db *DB) loadHits(ctx context.Context, c *segment.Candidate) error {
	rows, err := db.QueryContext(ctx, `
		SELECT layer, wire, drift_time_ns, side, pos_x, pos_y, pos_z, variance
		FROM dt_segment_hits
		WHERE segment_id = ?
		ORDER BY hit_index
	`, c.ID.String())
	if err != nil {
		return fmt.Errorf("load hits of segment %s: %w", c.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m    segment.Measurement
			side int
		)
		if err := rows.Scan(&m.Layer.Layer, &m.Wire, &m.DriftTime, &side,
			&m.Position.X, &m.Position.Y, &m.Position.Z, &m.Variance); err != nil {
			return fmt.Errorf("scan hit of segment %s: %w", c.ID, err)
		}
		layer := m.Layer.Layer
		m.Layer = c.SuperLayer
		m.Layer.Layer = layer
		m.Side = segment.Side(side)
		c.Measurements = append(c.Measurements, m)
	}
	return rows.Err()
}
