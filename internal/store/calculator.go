package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// calculatorRepo implements CalculatorRepo.
type calculatorRepo struct {
	s *Store
}

func (r *calculatorRepo) Append(ctx context.Context, sessionID int64, expression, result string) error {
	drv, err := r.s.driver()
	if err != nil {
		return err
	}

	query, args := builder().Insert(tableCalculator).
		Columns("session_id", "expression", "result", "timestamp").
		Values(sessionID, expression, result, now()).
		Query()
	if err := drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("log calculation for session %d: %w", sessionID, err)
	}
	return nil
}

func (r *calculatorRepo) List(ctx context.Context, sessionID int64) ([]Calculation, error) {
	drv, err := r.s.driver()
	if err != nil {
		return nil, err
	}

	q := builder().Select("id", "session_id", "expression", "result", "timestamp").
		From(builder().Table(tableCalculator)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("id")

	var out []Calculation
	err = scanAll(ctx, drv, q, func(rows *entsql.Rows) error {
		var (
			c  Calculation
			ts string
		)
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Expression, &c.Result, &ts); err != nil {
			return err
		}
		c.Timestamp = parseTime(ts)
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list calculations for session %d: %w", sessionID, err)
	}
	return out, nil
}
