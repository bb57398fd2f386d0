package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// expositionRepo implements ExpositionRepo. There is no eviction: an entry
// lives until an admin deletes it.
type expositionRepo struct {
	s *Store
}

var expositionColumns = []string{"subtopic_id", "content", "generated_at", "model_identifier"}

func (r *expositionRepo) Get(ctx context.Context, subtopicID int64) (*CachedExposition, error) {
	drv, err := r.s.driver()
	if err != nil {
		return nil, err
	}

	var found *CachedExposition
	q := builder().Select(expositionColumns...).
		From(builder().Table(tableExpositions)).
		Where(entsql.EQ("subtopic_id", subtopicID))
	err = scanAll(ctx, drv, q, func(rows *entsql.Rows) error {
		e, err := scanExposition(rows)
		if err != nil {
			return err
		}
		found = e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get exposition %d: %w", subtopicID, err)
	}
	return found, nil
}

func (r *expositionRepo) Put(ctx context.Context, subtopicID int64, content, modelIdentifier string) error {
	drv, err := r.s.driver()
	if err != nil {
		return err
	}

	query, args := builder().Insert(tableExpositions).
		Columns(expositionColumns...).
		Values(subtopicID, content, now(), modelIdentifier).
		OnConflict(entsql.ConflictColumns("subtopic_id"), entsql.ResolveWithNewValues()).
		Query()
	if err := drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("put exposition %d: %w", subtopicID, err)
	}
	return nil
}

func (r *expositionRepo) Delete(ctx context.Context, subtopicID int64) (bool, error) {
	drv, err := r.s.driver()
	if err != nil {
		return false, err
	}

	query, args := builder().Delete(tableExpositions).
		Where(entsql.EQ("subtopic_id", subtopicID)).
		Query()
	res, err := exec(ctx, drv, query, args)
	if err != nil {
		return false, fmt.Errorf("delete exposition %d: %w", subtopicID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *expositionRepo) DeleteAll(ctx context.Context) (int64, error) {
	drv, err := r.s.driver()
	if err != nil {
		return 0, err
	}

	query, args := builder().Delete(tableExpositions).Query()
	res, err := exec(ctx, drv, query, args)
	if err != nil {
		return 0, fmt.Errorf("clear expositions: %w", err)
	}
	return res.RowsAffected()
}

func (r *expositionRepo) List(ctx context.Context) ([]CachedExposition, error) {
	drv, err := r.s.driver()
	if err != nil {
		return nil, err
	}

	var out []CachedExposition
	q := builder().Select(expositionColumns...).
		From(builder().Table(tableExpositions)).
		OrderBy("subtopic_id")
	err = scanAll(ctx, drv, q, func(rows *entsql.Rows) error {
		e, err := scanExposition(rows)
		if err != nil {
			return err
		}
		out = append(out, *e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list expositions: %w", err)
	}
	return out, nil
}

func scanExposition(rows *entsql.Rows) (*CachedExposition, error) {
	var (
		e           CachedExposition
		generatedAt string
	)
	if err := rows.Scan(&e.SubtopicID, &e.Content, &generatedAt, &e.ModelIdentifier); err != nil {
		return nil, err
	}
	e.GeneratedAt = parseTime(generatedAt)
	return &e, nil
}
