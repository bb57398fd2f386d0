package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// sessionRepo implements SessionRepo.
type sessionRepo struct {
	s *Store
}

func (r *sessionRepo) Create(ctx context.Context, subtopicID int64) (*Session, error) {
	drv, err := r.s.driver()
	if err != nil {
		return nil, err
	}

	ts := now()
	query, args := builder().Insert(tableSessions).
		Columns("subtopic_id", "status", "created_at", "updated_at").
		Values(subtopicID, string(SessionActive), ts, ts).
		Query()
	res, err := exec(ctx, drv, query, args)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *sessionRepo) Get(ctx context.Context, id int64) (*Session, error) {
	drv, err := r.s.driver()
	if err != nil {
		return nil, err
	}

	q, t := sessionSelect()
	q.Where(entsql.EQ(t.C("id"), id))
	var found *Session
	err = scanAll(ctx, drv, q, func(rows *entsql.Rows) error {
		sess, err := scanSession(rows)
		if err != nil {
			return err
		}
		found = sess
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (r *sessionRepo) List(ctx context.Context, status SessionStatus, limit int) ([]Session, error) {
	drv, err := r.s.driver()
	if err != nil {
		return nil, err
	}

	q, t := sessionSelect()
	q.OrderBy(entsql.Desc(t.C("id")))
	if status != "" {
		q.Where(entsql.EQ(t.C("status"), string(status)))
	}
	if limit > 0 {
		q.Limit(limit)
	}

	var out []Session
	err = scanAll(ctx, drv, q, func(rows *entsql.Rows) error {
		sess, err := scanSession(rows)
		if err != nil {
			return err
		}
		out = append(out, *sess)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func (r *sessionRepo) UpdateCounters(ctx context.Context, id int64, attempted, correct int) error {
	return r.update(ctx, id, func(u *entsql.UpdateBuilder) {
		u.Set("questions_attempted", attempted).Set("questions_correct", correct)
	})
}

func (r *sessionRepo) SetStatus(ctx context.Context, id int64, status SessionStatus) error {
	return r.update(ctx, id, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(status))
	})
}

func (r *sessionRepo) update(ctx context.Context, id int64, set func(*entsql.UpdateBuilder)) error {
	drv, err := r.s.driver()
	if err != nil {
		return err
	}

	u := builder().Update(tableSessions).Set("updated_at", now())
	set(u)
	query, args := u.Where(entsql.EQ("id", id)).Query()
	res, err := exec(ctx, drv, query, args)
	if err != nil {
		return fmt.Errorf("update session %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sessionRepo) AbandonAll(ctx context.Context) (int64, error) {
	drv, err := r.s.driver()
	if err != nil {
		return 0, err
	}

	query, args := builder().Update(tableSessions).
		Set("status", string(SessionAbandoned)).
		Set("updated_at", now()).
		Where(entsql.EQ("status", string(SessionActive))).
		Query()
	res, err := exec(ctx, drv, query, args)
	if err != nil {
		return 0, fmt.Errorf("abandon sessions: %w", err)
	}
	return res.RowsAffected()
}

// sessionSelect joins the subtopic name so callers need no second lookup.
// The returned table qualifies session columns in predicates.
func sessionSelect() (*entsql.Selector, *entsql.SelectTable) {
	s := builder().Table(tableSessions).As("s")
	st := builder().Table(tableSubtopics).As("st")
	q := builder().Select(
		s.C("id"), s.C("subtopic_id"), st.C("name"), s.C("status"),
		s.C("questions_attempted"), s.C("questions_correct"),
		s.C("created_at"), s.C("updated_at"),
	).
		From(s).
		LeftJoin(st).On(s.C("subtopic_id"), st.C("id"))
	return q, s
}

func scanSession(rows *entsql.Rows) (*Session, error) {
	var (
		sess                     Session
		name                     *string
		status, created, updated string
	)
	err := rows.Scan(&sess.ID, &sess.SubtopicID, &name, &status,
		&sess.QuestionsAttempted, &sess.QuestionsCorrect, &created, &updated)
	if err != nil {
		return nil, err
	}
	if name != nil {
		sess.SubtopicName = *name
	}
	sess.Status = SessionStatus(status)
	sess.CreatedAt = parseTime(created)
	sess.UpdatedAt = parseTime(updated)
	return &sess, nil
}

// messageRepo implements MessageRepo.
type messageRepo struct {
	s *Store
}

func (r *messageRepo) Append(ctx context.Context, sessionID int64, role, content string, ts time.Time) error {
	drv, err := r.s.driver()
	if err != nil {
		return err
	}

	query, args := builder().Insert(tableMessages).
		Columns("session_id", "role", "content", "timestamp").
		Values(sessionID, role, content, formatTime(ts)).
		Query()
	if err := drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("append message to session %d: %w", sessionID, err)
	}
	return nil
}

func (r *messageRepo) List(ctx context.Context, sessionID int64) ([]MessageEntry, error) {
	drv, err := r.s.driver()
	if err != nil {
		return nil, err
	}

	q := builder().Select("id", "session_id", "role", "content", "timestamp").
		From(builder().Table(tableMessages)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("id")

	var out []MessageEntry
	err = scanAll(ctx, drv, q, func(rows *entsql.Rows) error {
		var (
			m  MessageEntry
			ts string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &ts); err != nil {
			return err
		}
		m.Timestamp = parseTime(ts)
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list messages for session %d: %w", sessionID, err)
	}
	return out, nil
}

func (r *messageRepo) Count(ctx context.Context, sessionID int64) (int, error) {
	drv, err := r.s.driver()
	if err != nil {
		return 0, err
	}

	q := builder().Select().
		From(builder().Table(tableMessages)).
		Where(entsql.EQ("session_id", sessionID)).
		Count()

	var n int
	err = scanAll(ctx, drv, q, func(rows *entsql.Rows) error {
		return rows.Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count messages for session %d: %w", sessionID, err)
	}
	return n, nil
}
