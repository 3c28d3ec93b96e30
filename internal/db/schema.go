package db

import (
	"context"
	"fmt"
)

// schema is written in the subset of SQL that MySQL and SQLite share.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS pois (
        dataset VARCHAR(64) NOT NULL,
        id      VARCHAR(64) NOT NULL,
        seq     INTEGER     NOT NULL,
        lat     DOUBLE      NOT NULL,
        lng     DOUBLE      NOT NULL,
        PRIMARY KEY (dataset, id)
    )`,
	`CREATE TABLE IF NOT EXISTS edges (
        edge_id BIGINT      NOT NULL PRIMARY KEY,
        dataset VARCHAR(64) NOT NULL,
        src_poi VARCHAR(64) NOT NULL,
        dst_poi VARCHAR(64) NOT NULL,
        weight  DOUBLE      NOT NULL,
        closed  BOOLEAN     NOT NULL DEFAULT FALSE
    )`,
	`CREATE TABLE IF NOT EXISTS tours (
        tour_id VARCHAR(64)  NOT NULL PRIMARY KEY,
        dataset VARCHAR(64)  NOT NULL,
        name    VARCHAR(255) NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS tour_waypoints (
        tour_id VARCHAR(64) NOT NULL,
        ord     INTEGER     NOT NULL,
        poi_id  VARCHAR(64) NOT NULL,
        range_m DOUBLE      NOT NULL,
        PRIMARY KEY (tour_id, ord, poi_id)
    )`,
}

func (s Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
