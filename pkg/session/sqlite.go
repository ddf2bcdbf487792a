package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/threadkit/threadkit/pkg/sqliteutil"
)

// SQLiteStore persists sessions in a sqlite database. Messages, context parts
// and the approved-tools list are stored as JSON columns; everything queried
// on gets its own column.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqliteutil.OpenDB(path)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id             TEXT PRIMARY KEY,
			parent_id      TEXT NOT NULL DEFAULT '',
			title          TEXT NOT NULL DEFAULT '',
			user_id        TEXT NOT NULL DEFAULT '',
			team_id        TEXT NOT NULL DEFAULT '',
			agent_name     TEXT NOT NULL DEFAULT '',
			messages       TEXT NOT NULL DEFAULT '[]',
			context_parts  TEXT NOT NULL DEFAULT '[]',
			approved_tools TEXT NOT NULL DEFAULT '[]',
			max_rounds     INTEGER NOT NULL DEFAULT 0,
			input_tokens   INTEGER NOT NULL DEFAULT 0,
			output_tokens  INTEGER NOT NULL DEFAULT 0,
			created_at     TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_parent ON sessions(parent_id);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, session *Session) error {
	messages, contextParts, approvedTools, err := marshalColumns(session)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, parent_id, title, user_id, team_id, agent_name,
			messages, context_parts, approved_tools, max_rounds,
			input_tokens, output_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.ParentID, session.Title, session.UserID, session.TeamID,
		session.AgentName, messages, contextParts, approvedTools, session.MaxRounds,
		session.InputTokens, session.OutputTokens, session.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, parent_id, title, user_id, team_id, agent_name,
			messages, context_parts, approved_tools, max_rounds,
			input_tokens, output_tokens, created_at
		FROM sessions WHERE id = ?`, id)

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return session, err
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, title, user_id, team_id, agent_name,
			messages, context_parts, approved_tools, max_rounds,
			input_tokens, output_tokens, created_at
		FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) Update(ctx context.Context, session *Session) error {
	messages, contextParts, approvedTools, err := marshalColumns(session)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET parent_id = ?, title = ?, user_id = ?, team_id = ?,
			agent_name = ?, messages = ?, context_parts = ?, approved_tools = ?,
			max_rounds = ?, input_tokens = ?, output_tokens = ?
		WHERE id = ?`,
		session.ParentID, session.Title, session.UserID, session.TeamID,
		session.AgentName, messages, contextParts, approvedTools, session.MaxRounds,
		session.InputTokens, session.OutputTokens, session.ID)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalColumns(session *Session) (messages, contextParts, approvedTools string, err error) {
	msgBytes, err := json.Marshal(session.Messages)
	if err != nil {
		return "", "", "", fmt.Errorf("marshaling messages: %w", err)
	}
	ctxBytes, err := json.Marshal(emptyAsList(session.ContextParts))
	if err != nil {
		return "", "", "", fmt.Errorf("marshaling context parts: %w", err)
	}
	toolBytes, err := json.Marshal(emptyAsList(session.ApprovedTools))
	if err != nil {
		return "", "", "", fmt.Errorf("marshaling approved tools: %w", err)
	}
	return string(msgBytes), string(ctxBytes), string(toolBytes), nil
}

func emptyAsList(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		session       Session
		messages      string
		contextParts  string
		approvedTools string
		createdAt     string
	)
	err := row.Scan(&session.ID, &session.ParentID, &session.Title,
		&session.UserID, &session.TeamID, &session.AgentName,
		&messages, &contextParts, &approvedTools, &session.MaxRounds,
		&session.InputTokens, &session.OutputTokens, &createdAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(messages), &session.Messages); err != nil {
		return nil, fmt.Errorf("unmarshaling messages: %w", err)
	}
	if err := json.Unmarshal([]byte(contextParts), &session.ContextParts); err != nil {
		return nil, fmt.Errorf("unmarshaling context parts: %w", err)
	}
	if err := json.Unmarshal([]byte(approvedTools), &session.ApprovedTools); err != nil {
		return nil, fmt.Errorf("unmarshaling approved tools: %w", err)
	}
	if session.CreatedAt, err = time.Parse(time.RFC3339Nano, strings.TrimSpace(createdAt)); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &session, nil
}
