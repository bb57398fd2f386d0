package store

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	tableTopics      = "topics"
	tableSubtopics   = "subtopics"
	tableSessions    = "sessions"
	tableMessages    = "messages"
	tableCalculator  = "calculator_history"
	tableProgress    = "progress"
	tableCheckpoints = "agent_checkpoints"
	tableExpositions = "cached_expositions"
	tableLLMRequests = "llm_requests"
)

// schema is applied in order on every Open. Statements must be idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS topics (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS subtopics (
		id INTEGER PRIMARY KEY,
		topic_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (topic_id) REFERENCES topics(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subtopics_topic_id ON subtopics(topic_id)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subtopic_id INTEGER NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('active', 'completed', 'abandoned')),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		questions_attempted INTEGER NOT NULL DEFAULT 0,
		questions_correct INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (subtopic_id) REFERENCES subtopics(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_subtopic ON sessions(subtopic_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('student', 'tutor')),
		content TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id)`,
	`CREATE TABLE IF NOT EXISTS calculator_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		expression TEXT NOT NULL,
		result TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_calculator_session ON calculator_history(session_id)`,
	`CREATE TABLE IF NOT EXISTS progress (
		subtopic_id INTEGER PRIMARY KEY,
		questions_attempted INTEGER NOT NULL DEFAULT 0,
		questions_correct INTEGER NOT NULL DEFAULT 0,
		is_complete BOOLEAN NOT NULL DEFAULT 0,
		last_accessed TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (subtopic_id) REFERENCES subtopics(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS agent_checkpoints (
		session_id INTEGER PRIMARY KEY,
		state_blob TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS cached_expositions (
		subtopic_id INTEGER PRIMARY KEY,
		content TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		model_identifier TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS llm_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL,
		timestamp TEXT NOT NULL,
		session_id INTEGER NOT NULL DEFAULT 0,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success BOOLEAN NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_llm_requests_sequence ON llm_requests(sequence)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
