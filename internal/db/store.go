package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/atharv3903/tourgraph/internal/model"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Store struct {
	DB *sql.DB
}

// Open connects to MySQL or SQLite. Both accept the same `?` placeholders,
// so every query below runs unchanged on either.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return Store{}, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
	case DriverSQLite:
	default:
		return Store{}, fmt.Errorf("unsupported db driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return Store{}, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// one writer, otherwise concurrent imports fail with SQLITE_BUSY
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(20)
		conn.SetMaxIdleConns(10)
		conn.SetConnMaxLifetime(time.Hour)
	}

	return Store{DB: conn}, nil
}

func (s Store) Close() error {
	return s.DB.Close()
}

func (s Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s Store) POIs(ctx context.Context, dataset string) ([]model.POI, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, lat, lng
        FROM pois
        WHERE dataset=?
        ORDER BY seq
    `, dataset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pois := make([]model.POI, 0, 256)
	for rows.Next() {
		var p model.POI
		if err := rows.Scan(&p.ID, &p.Lat, &p.Lng); err != nil {
			return nil, err
		}
		pois = append(pois, p)
	}
	return pois, rows.Err()
}

// Edges returns the open edges of a dataset. Closed edges are left out of
// the graph entirely.
func (s Store) Edges(ctx context.Context, dataset string) ([]model.Edge, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT edge_id, src_poi, dst_poi, weight, closed
        FROM edges
        WHERE dataset=?
        ORDER BY edge_id
    `, dataset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := make([]model.Edge, 0, 512)
	for rows.Next() {
		var e model.Edge
		var closed bool

		if err := rows.Scan(&e.ID, &e.From, &e.To, &e.Weight, &closed); err != nil {
			return nil, err
		}
		if closed {
			continue
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s Store) Tour(ctx context.Context, tourID string) (model.Tour, error) {
	var t model.Tour
	err := s.DB.QueryRowContext(ctx, `
        SELECT tour_id, dataset, name FROM tours WHERE tour_id=?
    `, tourID).Scan(&t.ID, &t.Dataset, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tour{}, fmt.Errorf("tour %s: %w", tourID, model.ErrNotFound)
	}
	return t, err
}

func (s Store) Tours(ctx context.Context, dataset string) ([]model.Tour, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT tour_id, dataset, name FROM tours WHERE dataset=? ORDER BY tour_id
    `, dataset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tours := []model.Tour{}
	for rows.Next() {
		var t model.Tour
		if err := rows.Scan(&t.ID, &t.Dataset, &t.Name); err != nil {
			return nil, err
		}
		tours = append(tours, t)
	}
	return tours, rows.Err()
}

// TourWaypoints returns the waypoints of a tour ascending by order, joined
// with the coordinates of their POIs.
func (s Store) TourWaypoints(ctx context.Context, tourID string) ([]model.TourWaypoint, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT w.ord, p.id, p.lat, p.lng, w.range_m
        FROM tour_waypoints w
        JOIN tours t ON t.tour_id = w.tour_id
        JOIN pois p ON p.dataset = t.dataset AND p.id = w.poi_id
        WHERE w.tour_id=?
        ORDER BY w.ord
    `, tourID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wps := []model.TourWaypoint{}
	for rows.Next() {
		var w model.TourWaypoint
		if err := rows.Scan(&w.Order, &w.POI.ID, &w.POI.Lat, &w.POI.Lng, &w.ArrivalRadiusMeters); err != nil {
			return nil, err
		}
		wps = append(wps, w)
	}
	return wps, rows.Err()
}

// EdgeDataset returns the dataset an edge belongs to.
func (s Store) EdgeDataset(ctx context.Context, edgeID int64) (string, error) {
	var ds string
	err := s.DB.QueryRowContext(ctx, `SELECT dataset FROM edges WHERE edge_id=?`, edgeID).Scan(&ds)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("edge %d: %w", edgeID, model.ErrNotFound)
	}
	return ds, err
}

func (s Store) UpdateEdgeWeight(ctx context.Context, edgeID int64, weight float64) error {
	return s.execOne(ctx, edgeID, `UPDATE edges SET weight=? WHERE edge_id=?`, weight, edgeID)
}

func (s Store) UpdateEdgeClosed(ctx context.Context, edgeID int64, closed bool) error {
	return s.execOne(ctx, edgeID, `UPDATE edges SET closed=? WHERE edge_id=?`, closed, edgeID)
}

func (s Store) execOne(ctx context.Context, edgeID int64, query string, args ...any) error {
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	// MySQL reports 0 rows when the value is unchanged, so only trust a
	// non-zero count.
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = s.EdgeDataset(ctx, edgeID)
	return err
}
