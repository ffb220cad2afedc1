package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// EntityRecord is one entity's serialized form: its id plus every component,
// JSON-encoded per type.
type EntityRecord struct {
	Entity     uint32
	Components map[string]json.RawMessage
}

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save writes one snapshot atomically and returns its id.
func (r *SnapshotRepo) Save(ctx context.Context, records []EntityRecord) (int64, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO world_snapshots (entity_count) VALUES ($1) RETURNING id`,
		len(records),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("snapshot insert: %w", err)
	}

	for _, rec := range records {
		blob, err := json.Marshal(rec.Components)
		if err != nil {
			return 0, fmt.Errorf("snapshot encode entity %d: %w", rec.Entity, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO snapshot_entities (snapshot_id, entity_id, components)
			 VALUES ($1, $2, $3)`,
			id, int64(rec.Entity), blob,
		); err != nil {
			return 0, fmt.Errorf("snapshot insert entity %d: %w", rec.Entity, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("snapshot commit: %w", err)
	}
	return id, nil
}

// LoadLatest returns the most recent snapshot's records and id. A database
// with no snapshots yields (nil, 0, nil).
func (r *SnapshotRepo) LoadLatest(ctx context.Context) ([]EntityRecord, int64, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id FROM world_snapshots ORDER BY taken_at DESC, id DESC LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT entity_id, components FROM snapshot_entities
		 WHERE snapshot_id = $1 ORDER BY entity_id`,
		id,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []EntityRecord
	for rows.Next() {
		var eid int64
		var blob []byte
		if err := rows.Scan(&eid, &blob); err != nil {
			return nil, 0, err
		}
		rec := EntityRecord{Entity: uint32(eid)}
		if err := json.Unmarshal(blob, &rec.Components); err != nil {
			return nil, 0, fmt.Errorf("snapshot decode entity %d: %w", eid, err)
		}
		records = append(records, rec)
	}
	return records, id, rows.Err()
}

// Prune deletes all but the newest keep snapshots.
func (r *SnapshotRepo) Prune(ctx context.Context, keep int) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM world_snapshots
		 WHERE id NOT IN (
		     SELECT id FROM world_snapshots ORDER BY taken_at DESC, id DESC LIMIT $1
		 )`,
		keep,
	)
	return err
}
