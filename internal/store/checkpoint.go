package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// checkpointRepo implements CheckpointRepo.
type checkpointRepo struct {
	s *Store
}

// Save upserts in place. INSERT OR REPLACE would delete the old row first.
func (r *checkpointRepo) Save(ctx context.Context, sessionID int64, blob []byte) error {
	drv, err := r.s.driver()
	if err != nil {
		return err
	}

	query, args := builder().Insert(tableCheckpoints).
		Columns("session_id", "state_blob", "updated_at").
		Values(sessionID, string(blob), now()).
		OnConflict(entsql.ConflictColumns("session_id"), entsql.ResolveWithNewValues()).
		Query()
	if err := drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save checkpoint %d: %w", sessionID, err)
	}
	return nil
}

func (r *checkpointRepo) Load(ctx context.Context, sessionID int64) ([]byte, error) {
	drv, err := r.s.driver()
	if err != nil {
		return nil, err
	}

	var blob []byte
	q := builder().Select("state_blob").
		From(builder().Table(tableCheckpoints)).
		Where(entsql.EQ("session_id", sessionID))
	err = scanAll(ctx, drv, q, func(rows *entsql.Rows) error {
		var s string
		if err := rows.Scan(&s); err != nil {
			return err
		}
		blob = []byte(s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %d: %w", sessionID, err)
	}
	if blob == nil {
		return nil, ErrNotFound
	}
	return blob, nil
}

func (r *checkpointRepo) Delete(ctx context.Context, sessionID int64) error {
	drv, err := r.s.driver()
	if err != nil {
		return err
	}

	query, args := builder().Delete(tableCheckpoints).
		Where(entsql.EQ("session_id", sessionID)).
		Query()
	if err := drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("delete checkpoint %d: %w", sessionID, err)
	}
	return nil
}
