package main

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"museum/roster"
	"museum/solver"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const zoneColumns = `name, base_time, base_value, base_popularity,
	sub_time, sub_value, sub_popularity,
	req_time, req_value, req_popularity, scaler, level`

// SQLSTATE codes for constraint violations.
const (
	foreignKeyViolation pq.ErrorCode = "23503"
	uniqueViolation     pq.ErrorCode = "23505"
)

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func scanZone(row interface{ Scan(...any) error }) (solver.Zone, error) {
	var z solver.Zone
	err := row.Scan(&z.Name,
		&z.Base.Time, &z.Base.Value, &z.Base.Popularity,
		&z.SubLevel.Time, &z.SubLevel.Value, &z.SubLevel.Popularity,
		&z.Requirement.Time, &z.Requirement.Value, &z.Requirement.Popularity,
		&z.Scaler, &z.Level)
	return z, err
}

func museumExists(ctx context.Context, q querier, museumID int64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM museums WHERE id = $1)", museumID).Scan(&exists)
	return exists, err
}

// loadRoster reads a museum's members and zones in insertion order. A
// non-nil zoneNames keeps only the zones it names.
func loadRoster(ctx context.Context, q querier, museumID int64, zoneNames []string) (*roster.Roster, error) {
	var doc roster.Document

	rows, err := q.QueryContext(ctx, `
		SELECT name, time, value, popularity
		FROM members
		WHERE museum_id = $1
		ORDER BY position`, museumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m solver.Member
		if err := rows.Scan(&m.Name, &m.Attribute.Time, &m.Attribute.Value, &m.Attribute.Popularity); err != nil {
			return nil, err
		}
		doc.Members = append(doc.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	zrows, err := q.QueryContext(ctx, `
		SELECT `+zoneColumns+`
		FROM zones
		WHERE museum_id = $1 AND ($2::text[] IS NULL OR name = ANY($2))
		ORDER BY position`, museumID, pq.Array(zoneNames))
	if err != nil {
		return nil, err
	}
	defer zrows.Close()
	for zrows.Next() {
		z, err := scanZone(zrows)
		if err != nil {
			return nil, err
		}
		doc.Zones = append(doc.Zones, z)
	}
	if err := zrows.Err(); err != nil {
		return nil, err
	}

	return roster.FromDocument(doc)
}

// loadZone reads one zone and locks its row for the rest of the transaction.
func loadZone(ctx context.Context, tx *sql.Tx, museumID int64, name string) (solver.Zone, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+zoneColumns+`
		FROM zones
		WHERE museum_id = $1 AND name = $2
		FOR UPDATE`, museumID, name)
	z, err := scanZone(row)
	if errors.Is(err, sql.ErrNoRows) {
		return z, roster.ErrUnknownZone
	}
	return z, err
}

// putMembers inserts members or overwrites them by name. Overwritten members
// keep their position.
func putMembers(ctx context.Context, q querier, museumID int64, members []solver.Member) error {
	for _, m := range members {
		_, err := q.ExecContext(ctx, `
			INSERT INTO members (museum_id, name, time, value, popularity)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (museum_id, name) DO UPDATE
			SET time = EXCLUDED.time, value = EXCLUDED.value, popularity = EXCLUDED.popularity`,
			museumID, m.Name, m.Attribute.Time, m.Attribute.Value, m.Attribute.Popularity)
		if err != nil {
			return err
		}
	}
	return nil
}

// putZones is putMembers for zones. A zero scaler is stored as the default.
func putZones(ctx context.Context, q querier, museumID int64, zones []solver.Zone) error {
	for _, z := range zones {
		if z.Scaler == 0 {
			z.Scaler = roster.DefaultScaler
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO zones (museum_id, `+zoneColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (museum_id, name) DO UPDATE
			SET base_time = EXCLUDED.base_time, base_value = EXCLUDED.base_value, base_popularity = EXCLUDED.base_popularity,
				sub_time = EXCLUDED.sub_time, sub_value = EXCLUDED.sub_value, sub_popularity = EXCLUDED.sub_popularity,
				req_time = EXCLUDED.req_time, req_value = EXCLUDED.req_value, req_popularity = EXCLUDED.req_popularity,
				scaler = EXCLUDED.scaler, level = EXCLUDED.level`,
			museumID, z.Name,
			z.Base.Time, z.Base.Value, z.Base.Popularity,
			z.SubLevel.Time, z.SubLevel.Value, z.SubLevel.Popularity,
			z.Requirement.Time, z.Requirement.Value, z.Requirement.Popularity,
			z.Scaler, z.Level)
		if err != nil {
			return err
		}
	}
	return nil
}

// replaceRoster swaps a museum's whole roster for r.
func replaceRoster(ctx context.Context, tx *sql.Tx, museumID int64, r *roster.Roster) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM members WHERE museum_id = $1", museumID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM zones WHERE museum_id = $1", museumID); err != nil {
		return err
	}
	if err := putMembers(ctx, tx, museumID, r.Members()); err != nil {
		return err
	}
	return putZones(ctx, tx, museumID, r.Zones())
}

// inTx runs fn in a transaction, committing only if fn succeeds.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
