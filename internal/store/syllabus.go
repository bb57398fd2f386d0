package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// syllabusRepo implements SyllabusRepo.
type syllabusRepo struct {
	s *Store
}

// Load upserts every topic and subtopic, then removes rows the new
// syllabus no longer names. Removing a subtopic cascades to its sessions.
func (r *syllabusRepo) Load(ctx context.Context, topics []Topic) error {
	err := r.s.withTx(ctx, func(tx execer) error {
		var topicIDs, subtopicIDs []any

		for _, t := range topics {
			query, args := builder().Insert(tableTopics).
				Columns("id", "name", "description").
				Values(t.ID, t.Name, t.Description).
				OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
				Query()
			if err := tx.Exec(ctx, query, args, nil); err != nil {
				return fmt.Errorf("upsert topic %d: %w", t.ID, err)
			}
			topicIDs = append(topicIDs, t.ID)

			for _, st := range t.Subtopics {
				query, args := builder().Insert(tableSubtopics).
					Columns("id", "topic_id", "name", "description").
					Values(st.ID, t.ID, st.Name, st.Description).
					OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
					Query()
				if err := tx.Exec(ctx, query, args, nil); err != nil {
					return fmt.Errorf("upsert subtopic %d: %w", st.ID, err)
				}
				subtopicIDs = append(subtopicIDs, st.ID)
			}
		}

		if len(subtopicIDs) > 0 {
			query, args := builder().Delete(tableSubtopics).
				Where(entsql.NotIn("id", subtopicIDs...)).
				Query()
			if err := tx.Exec(ctx, query, args, nil); err != nil {
				return fmt.Errorf("prune subtopics: %w", err)
			}
		}
		if len(topicIDs) > 0 {
			query, args := builder().Delete(tableTopics).
				Where(entsql.NotIn("id", topicIDs...)).
				Query()
			if err := tx.Exec(ctx, query, args, nil); err != nil {
				return fmt.Errorf("prune topics: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load syllabus: %w", err)
	}
	return nil
}

func (r *syllabusRepo) SubtopicName(ctx context.Context, subtopicID int64) (string, error) {
	drv, err := r.s.driver()
	if err != nil {
		return "", err
	}

	var (
		name  string
		found bool
	)
	q := builder().Select("name").
		From(builder().Table(tableSubtopics)).
		Where(entsql.EQ("id", subtopicID))
	err = scanAll(ctx, drv, q, func(rows *entsql.Rows) error {
		found = true
		return rows.Scan(&name)
	})
	if err != nil {
		return "", fmt.Errorf("subtopic %d name: %w", subtopicID, err)
	}
	if !found {
		return "", ErrNotFound
	}
	return name, nil
}

func (r *syllabusRepo) Topics(ctx context.Context) ([]Topic, error) {
	drv, err := r.s.driver()
	if err != nil {
		return nil, err
	}

	var topics []Topic
	index := map[int64]int{}
	q := builder().Select("id", "name", "description").
		From(builder().Table(tableTopics)).
		OrderBy("id")
	err = scanAll(ctx, drv, q, func(rows *entsql.Rows) error {
		var t Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.Description); err != nil {
			return err
		}
		index[t.ID] = len(topics)
		topics = append(topics, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}

	q = builder().Select("id", "topic_id", "name", "description").
		From(builder().Table(tableSubtopics)).
		OrderBy("topic_id", "id")
	err = scanAll(ctx, drv, q, func(rows *entsql.Rows) error {
		var st Subtopic
		if err := rows.Scan(&st.ID, &st.TopicID, &st.Name, &st.Description); err != nil {
			return err
		}
		if i, ok := index[st.TopicID]; ok {
			topics[i].Subtopics = append(topics[i].Subtopics, st)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list subtopics: %w", err)
	}
	return topics, nil
}
