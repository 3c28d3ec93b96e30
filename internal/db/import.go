package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atharv3903/tourgraph/internal/dataset"
)

// ImportStats counts the rows written by ImportDataset.
type ImportStats struct {
	POIs      int
	Edges     int
	Tours     int
	Waypoints int
}

// ImportDataset replaces everything stored for d.Name in one transaction.
// Edges without an id are numbered after the highest id in the table,
// skipping ids the dataset assigns explicitly.
func (s Store) ImportDataset(ctx context.Context, d *dataset.Dataset) (ImportStats, error) {
	var st ImportStats
	if err := d.Validate(); err != nil {
		return st, fmt.Errorf("invalid dataset: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return st, err
	}
	defer tx.Rollback()

	if err := clearDataset(ctx, tx, d.Name); err != nil {
		return st, err
	}

	for i, p := range d.POIs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pois (dataset, id, seq, lat, lng) VALUES (?, ?, ?, ?, ?)`,
			d.Name, p.ID, i, p.Lat, p.Lng); err != nil {
			return st, fmt.Errorf("insert poi %s: %w", p.ID, err)
		}
		st.POIs++
	}

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(edge_id), 0) FROM edges`).Scan(&next); err != nil {
		return st, err
	}
	taken := make(map[int64]bool)
	for _, e := range d.Edges {
		if e.ID != 0 {
			taken[e.ID] = true
		}
	}
	for _, e := range d.Edges {
		id := e.ID
		if id == 0 {
			next++
			for taken[next] {
				next++
			}
			id = next
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO edges (edge_id, dataset, src_poi, dst_poi, weight, closed) VALUES (?, ?, ?, ?, ?, ?)`,
			id, d.Name, e.From, e.To, e.Weight, false); err != nil {
			return st, fmt.Errorf("insert edge %s-%s: %w", e.From, e.To, err)
		}
		st.Edges++
	}

	for _, t := range d.Tours {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tours (tour_id, dataset, name) VALUES (?, ?, ?)`,
			t.ID, d.Name, t.Name); err != nil {
			return st, fmt.Errorf("insert tour %s: %w", t.ID, err)
		}
		st.Tours++

		for _, w := range t.Waypoints {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO tour_waypoints (tour_id, ord, poi_id, range_m) VALUES (?, ?, ?, ?)`,
				t.ID, w.Order, w.POI.ID, w.Radius()); err != nil {
				return st, fmt.Errorf("insert waypoint %d of %s: %w", w.Order, t.ID, err)
			}
			st.Waypoints++
		}
	}

	if err := tx.Commit(); err != nil {
		return st, err
	}
	return st, nil
}

func clearDataset(ctx context.Context, tx *sql.Tx, name string) error {
	stmts := []string{
		`DELETE FROM tour_waypoints WHERE tour_id IN (SELECT tour_id FROM tours WHERE dataset=?)`,
		`DELETE FROM tours WHERE dataset=?`,
		`DELETE FROM edges WHERE dataset=?`,
		`DELETE FROM pois WHERE dataset=?`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, name); err != nil {
			return fmt.Errorf("clear dataset %s: %w", name, err)
		}
	}
	return nil
}
