package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err, "open test store")
	t.Cleanup(func() { s.Close() })
	return s
}

// seedSyllabus loads a two-topic syllabus used by most tests.
func seedSyllabus(t *testing.T, s *Store) {
	t.Helper()
	err := s.SyllabusRepo().Load(context.Background(), []Topic{
		{ID: 1, Name: "Number", Subtopics: []Subtopic{
			{ID: 10, Name: "Fractions"},
			{ID: 11, Name: "Percentages"},
		}},
		{ID: 2, Name: "Algebra", Subtopics: []Subtopic{
			{ID: 20, Name: "Linear equations"},
		}},
	})
	require.NoError(t, err)
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		require.NoError(t, db.QueryRow("PRAGMA "+tt.pragma).Scan(&got))
		assert.Equal(t, tt.want, got, "PRAGMA %s", tt.pragma)
	}
}

func TestSchemaCreatesTables(t *testing.T) {
	s := openTestStore(t)

	for _, table := range []string{
		tableTopics, tableSubtopics, tableSessions, tableMessages, tableCalculator,
		tableProgress, tableCheckpoints, tableExpositions, tableLLMRequests,
	} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestOpenIsIdempotentOnFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bloom.db")

	s, err := Open(path)
	require.NoError(t, err)
	seedSyllabus(t, s)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	name, err := s.SyllabusRepo().SubtopicName(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "Fractions", name)
}

func TestClosedStore(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second close is a no-op")

	_, err := s.CheckpointRepo().Load(context.Background(), 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCheckpointSaveLoad(t *testing.T) {
	s := openTestStore(t)
	seedSyllabus(t, s)
	ctx := context.Background()

	sess, err := s.SessionRepo().Create(ctx, 10)
	require.NoError(t, err)

	repo := s.CheckpointRepo()

	_, err = repo.Load(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Save(ctx, sess.ID, []byte(`{"v":1}`)))
	require.NoError(t, repo.Save(ctx, sess.ID, []byte(`{"v":2}`)))

	blob, err := repo.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(blob))

	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM agent_checkpoints").Scan(&n))
	assert.Equal(t, 1, n, "upsert keeps a single row")

	require.NoError(t, repo.Delete(ctx, sess.ID))
	_, err = repo.Load(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpositionCache(t *testing.T) {
	s := openTestStore(t)
	repo := s.ExpositionRepo()
	ctx := context.Background()

	got, err := repo.Get(ctx, 10)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Put(ctx, 10, "first", "gpt-4o-mini"))
	require.NoError(t, repo.Put(ctx, 10, "second", "claude-haiku-4-5"))
	require.NoError(t, repo.Put(ctx, 11, "other", "gpt-4o-mini"))

	got, err = repo.Get(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Content)
	assert.Equal(t, "claude-haiku-4-5", got.ModelIdentifier)
	assert.WithinDuration(t, time.Now(), got.GeneratedAt, time.Minute)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(10), all[0].SubtopicID)

	existed, err := repo.Delete(ctx, 10)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = repo.Delete(ctx, 10)
	require.NoError(t, err)
	assert.False(t, existed)

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSyllabusLoadAndPrune(t *testing.T) {
	s := openTestStore(t)
	seedSyllabus(t, s)
	repo := s.SyllabusRepo()
	ctx := context.Background()

	topics, err := repo.Topics(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "Number", topics[0].Name)
	assert.Len(t, topics[0].Subtopics, 2)

	// Reload without Percentages and Algebra; rename Fractions.
	err = repo.Load(ctx, []Topic{
		{ID: 1, Name: "Number", Subtopics: []Subtopic{{ID: 10, Name: "Fractions and ratio"}}},
	})
	require.NoError(t, err)

	topics, err = repo.Topics(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	require.Len(t, topics[0].Subtopics, 1)

	name, err := repo.SubtopicName(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Fractions and ratio", name)

	_, err = repo.SubtopicName(ctx, 20)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)
	seedSyllabus(t, s)
	repo := s.SessionRepo()
	ctx := context.Background()

	a, err := repo.Create(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, SessionActive, a.Status)
	assert.Equal(t, "Fractions", a.SubtopicName)

	b, err := repo.Create(ctx, 20)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateCounters(ctx, a.ID, 3, 2))
	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.QuestionsAttempted)
	assert.Equal(t, 2, got.QuestionsCorrect)

	require.NoError(t, repo.SetStatus(ctx, b.ID, SessionCompleted))

	active, err := repo.List(ctx, SessionActive, 0)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)

	all, err := repo.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID, "newest first")

	n, err := repo.AbandonAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionAbandoned, got.Status)

	_, err = repo.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.SetStatus(ctx, 999, SessionCompleted), ErrNotFound)
}

func TestMessagesAndCalculator(t *testing.T) {
	s := openTestStore(t)
	seedSyllabus(t, s)
	ctx := context.Background()

	sess, err := s.SessionRepo().Create(ctx, 10)
	require.NoError(t, err)

	msgs := s.MessageRepo()
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, msgs.Append(ctx, sess.ID, "tutor", "Welcome", ts))
	require.NoError(t, msgs.Append(ctx, sess.ID, "student", "3/8", ts.Add(time.Second)))

	list, err := msgs.List(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "tutor", list[0].Role)
	assert.True(t, ts.Equal(list[0].Timestamp))

	n, err := msgs.Count(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Error(t, msgs.Append(ctx, sess.ID, "narrator", "x", ts), "role is constrained")

	calc := s.CalculatorRepo()
	require.NoError(t, calc.Append(ctx, sess.ID, "3/4 + 1/8", "0.875"))
	history, err := calc.List(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "0.875", history[0].Result)
}

func TestProgressRecordAndSummary(t *testing.T) {
	s := openTestStore(t)
	seedSyllabus(t, s)
	repo := s.ProgressRepo()
	ctx := context.Background()

	p, err := repo.Get(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, p.Attempted)

	for i := 0; i < 2; i++ {
		p, err = repo.Record(ctx, 10, 1, 1, 3)
		require.NoError(t, err)
	}
	assert.False(t, p.IsComplete)

	p, err = repo.Record(ctx, 10, 1, 1, 3)
	require.NoError(t, err)
	assert.True(t, p.IsComplete)
	assert.Equal(t, 3, p.Attempted)
	assert.Equal(t, 3, p.Correct)

	_, err = repo.Record(ctx, 20, 1, 0, 3)
	require.NoError(t, err)

	summary, err := repo.TopicSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	assert.Equal(t, "Number", summary[0].TopicName)
	assert.Equal(t, 2, summary[0].Subtopics)
	assert.Equal(t, 1, summary[0].Completed)
	assert.Equal(t, 50.0, summary[0].CompletionPercent)

	assert.Equal(t, 0, summary[1].Completed)
	assert.Equal(t, 1, summary[1].Attempted)
	assert.Equal(t, 0.0, summary[1].CompletionPercent)

	require.NoError(t, repo.Reset(ctx))
	p, err = repo.Get(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, p.Correct)
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{SessionID: 1, Provider: "openai", Model: "gpt-4o-mini", Purpose: "exposition", InputTokens: 100, OutputTokens: 400, LatencyMs: 900, Success: true},
		{SessionID: 1, Provider: "openai", Model: "gpt-4o-mini", Purpose: "evaluation", InputTokens: 200, OutputTokens: 50, LatencyMs: 300, Success: true},
		{SessionID: 2, Provider: "openai", Model: "gpt-4o-mini", Purpose: "evaluation", LatencyMs: 100, Success: false, ErrorMessage: "boom"},
	}
	for _, e := range events {
		require.NoError(t, repo.AppendLLMRequest(ctx, e))
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "boom", all[0].ErrorMessage, "newest first")
	assert.Greater(t, all[0].Sequence, all[1].Sequence)

	filtered, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "evaluation", SessionID: 1})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, 200, filtered[0].InputTokens)

	limited, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	got, err := repo.GetLLMEvent(ctx, all[2].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "exposition", got.Purpose)

	missing, err := repo.GetLLMEvent(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, "evaluation", byPurpose[0].Purpose)
	assert.Equal(t, 2, byPurpose[0].Calls)
	assert.Equal(t, int64(200), byPurpose[0].AvgLatencyMs)

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 1)
	assert.Equal(t, 3, byModel[0].Calls)
	assert.Equal(t, 450, byModel[0].OutputTokens)
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var prev int64
	for i := 0; i < 5; i++ {
		seq, err := s.seq.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, prev+1, seq)
		prev = seq
	}
}
