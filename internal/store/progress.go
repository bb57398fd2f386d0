package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// progressRepo implements ProgressRepo.
type progressRepo struct {
	s *Store
}

var progressColumns = []string{"subtopic_id", "questions_attempted", "questions_correct", "is_complete", "last_accessed"}

func (r *progressRepo) Record(ctx context.Context, subtopicID int64, attemptedDelta, correctDelta, threshold int) (*Progress, error) {
	var out *Progress
	err := r.s.withTx(ctx, func(tx execer) error {
		p, err := getProgress(ctx, tx, subtopicID)
		if err != nil {
			return err
		}

		p.Attempted += attemptedDelta
		p.Correct += correctDelta
		p.IsComplete = p.Correct >= threshold
		p.LastAccessed = time.Now().UTC()

		query, args := builder().Insert(tableProgress).
			Columns(progressColumns...).
			Values(subtopicID, p.Attempted, p.Correct, p.IsComplete, formatTime(p.LastAccessed)).
			OnConflict(entsql.ConflictColumns("subtopic_id"), entsql.ResolveWithNewValues()).
			Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record progress for subtopic %d: %w", subtopicID, err)
	}
	return out, nil
}

func (r *progressRepo) Get(ctx context.Context, subtopicID int64) (*Progress, error) {
	drv, err := r.s.driver()
	if err != nil {
		return nil, err
	}
	p, err := getProgress(ctx, drv, subtopicID)
	if err != nil {
		return nil, fmt.Errorf("get progress for subtopic %d: %w", subtopicID, err)
	}
	return p, nil
}

// getProgress returns the stored row or a zero Progress for subtopicID.
func getProgress(ctx context.Context, ex execer, subtopicID int64) (*Progress, error) {
	p := &Progress{SubtopicID: subtopicID}
	q := builder().Select(progressColumns...).
		From(builder().Table(tableProgress)).
		Where(entsql.EQ("subtopic_id", subtopicID))
	err := scanAll(ctx, ex, q, func(rows *entsql.Rows) error {
		var last string
		if err := rows.Scan(&p.SubtopicID, &p.Attempted, &p.Correct, &p.IsComplete, &last); err != nil {
			return err
		}
		p.LastAccessed = parseTime(last)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *progressRepo) TopicSummary(ctx context.Context) ([]TopicProgress, error) {
	drv, err := r.s.driver()
	if err != nil {
		return nil, err
	}

	t := builder().Table(tableTopics).As("t")
	st := builder().Table(tableSubtopics).As("st")
	p := builder().Table(tableProgress).As("p")
	q := builder().Select(
		t.C("id"), t.C("name"),
		entsql.Count(st.C("id")),
		entsql.Sum(p.C("is_complete")),
		entsql.Sum(p.C("questions_attempted")),
		entsql.Sum(p.C("questions_correct")),
	).
		From(t).
		Join(st).On(t.C("id"), st.C("topic_id")).
		LeftJoin(p).On(st.C("id"), p.C("subtopic_id")).
		GroupBy(t.C("id"), t.C("name")).
		OrderBy(t.C("id"))

	var out []TopicProgress
	err = scanAll(ctx, drv, q, func(rows *entsql.Rows) error {
		var (
			tp                          TopicProgress
			completed, attempted, right sql.NullInt64
		)
		if err := rows.Scan(&tp.TopicID, &tp.TopicName, &tp.Subtopics, &completed, &attempted, &right); err != nil {
			return err
		}
		tp.Completed = int(completed.Int64)
		tp.Attempted = int(attempted.Int64)
		tp.Correct = int(right.Int64)
		if tp.Subtopics > 0 {
			pct := float64(tp.Completed) / float64(tp.Subtopics) * 100
			tp.CompletionPercent = math.Round(pct*10) / 10
		}
		out = append(out, tp)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("summarize progress: %w", err)
	}
	return out, nil
}

func (r *progressRepo) Reset(ctx context.Context) error {
	drv, err := r.s.driver()
	if err != nil {
		return err
	}
	query, args := builder().Delete(tableProgress).Query()
	if err := drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("reset progress: %w", err)
	}
	return nil
}
