package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/reverie-ai/reverie/internal/models"
)

// SQLiteStore implements Store on a single SQLite file. Single writes
// are atomic; nothing beyond that is guaranteed across records.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS thoughts (
		id TEXT PRIMARY KEY,
		timestamp TEXT,
		content TEXT,
		kind TEXT,
		parent_id TEXT,
		interest_score REAL,
		tags TEXT
	);

	CREATE TABLE IF NOT EXISTS golden_thoughts (
		id TEXT PRIMARY KEY,
		timestamp TEXT,
		content TEXT,
		interest_score REAL,
		discovery_context TEXT
	);

	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT,
		personality_traits TEXT,
		current_focus TEXT,
		model TEXT,
		conversation_style TEXT,
		created_at TEXT
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		timestamp TEXT,
		agent_id TEXT,
		content TEXT,
		response_to TEXT,
		conversation_id TEXT,
		interest_score REAL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		started_at TEXT,
		ended_at TEXT,
		participant_count INTEGER,
		message_count INTEGER,
		topic TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveThought upserts a thought by id.
func (s *SQLiteStore) SaveThought(ctx context.Context, t models.Thought) error {
	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO thoughts
		(id, timestamp, content, kind, parent_id, interest_score, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Timestamp.Format(time.RFC3339Nano), t.Content, string(t.Kind),
		t.ParentID, t.Score, string(tags),
	)
	return err
}

// SaveGolden upserts a golden record by id.
func (s *SQLiteStore) SaveGolden(ctx context.Context, g models.GoldenThought) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO golden_thoughts
		(id, timestamp, content, interest_score, discovery_context)
		VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.Timestamp.Format(time.RFC3339Nano), g.Content, g.Score, g.DiscoveryContext,
	)
	return err
}

// SaveAgent upserts an agent by id.
func (s *SQLiteStore) SaveAgent(ctx context.Context, a models.Agent) error {
	traits, err := json.Marshal(a.Traits)
	if err != nil {
		return fmt.Errorf("failed to marshal traits: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO agents
		(id, name, personality_traits, current_focus, model, conversation_style, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, string(traits), a.Focus, a.Model, a.Style,
		a.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// SaveMessage upserts a conversation message by id.
func (s *SQLiteStore) SaveMessage(ctx context.Context, m models.Thought) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO messages
		(id, timestamp, agent_id, content, response_to, conversation_id, interest_score)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Timestamp.Format(time.RFC3339Nano), m.AgentID, m.Content,
		m.ParentID, m.ConversationID, m.Score,
	)
	return err
}

// SaveConversation upserts conversation bookkeeping by id.
func (s *SQLiteStore) SaveConversation(ctx context.Context, c models.Conversation) error {
	ended := ""
	if !c.EndedAt.IsZero() {
		ended = c.EndedAt.Format(time.RFC3339Nano)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO conversations
		(id, started_at, ended_at, participant_count, message_count, topic)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.StartedAt.Format(time.RFC3339Nano), ended,
		len(c.Participants), len(c.Thoughts), c.Topic,
	)
	return err
}

// Golden returns all golden records ordered by score descending then
// timestamp descending.
func (s *SQLiteStore) Golden(ctx context.Context) ([]models.GoldenThought, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, content, interest_score, discovery_context
		FROM golden_thoughts
		ORDER BY interest_score DESC, timestamp DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GoldenThought
	for rows.Next() {
		var g models.GoldenThought
		var ts string
		if err := rows.Scan(&g.ID, &ts, &g.Content, &g.Score, &g.DiscoveryContext); err != nil {
			return nil, err
		}
		g.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, g)
	}
	return out, rows.Err()
}

// Agents returns all agents ordered by name.
func (s *SQLiteStore) Agents(ctx context.Context) ([]models.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, personality_traits, current_focus, model, conversation_style, created_at
		FROM agents
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Agent
	for rows.Next() {
		var a models.Agent
		var traits, created string
		if err := rows.Scan(&a.ID, &a.Name, &traits, &a.Focus, &a.Model, &a.Style, &created); err != nil {
			return nil, err
		}
		if traits != "" {
			json.Unmarshal([]byte(traits), &a.Traits)
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, a)
	}
	return out, rows.Err()
}

// RecentMessages returns up to limit messages across all conversations,
// newest first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, limit int) ([]models.Thought, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, agent_id, content, response_to, conversation_id, interest_score
		FROM messages
		ORDER BY timestamp DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Transcript returns one conversation's messages ordered by timestamp
// ascending.
func (s *SQLiteStore) Transcript(ctx context.Context, conversationID string) ([]models.Thought, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, agent_id, content, response_to, conversation_id, interest_score
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Stats aggregates the dashboard counters.
func (s *SQLiteStore) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT conversation_id) FROM messages`).Scan(&stats.TotalConversations); err != nil {
		return stats, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages`).Scan(&stats.TotalMessages); err != nil {
		return stats, err
	}
	today := time.Now().Format("2006-01-02")
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE timestamp LIKE ?`, today+"%").Scan(&stats.MessagesToday); err != nil {
		return stats, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM agents`).Scan(&stats.TotalAgents); err != nil {
		return stats, err
	}
	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanMessages(rows *sql.Rows) ([]models.Thought, error) {
	var out []models.Thought
	for rows.Next() {
		var m models.Thought
		var ts string
		if err := rows.Scan(&m.ID, &ts, &m.AgentID, &m.Content, &m.ParentID, &m.ConversationID, &m.Score); err != nil {
			return nil, err
		}
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		// The messages table carries no kind column; a message without a
		// back-reference is the conversation seed.
		if m.ParentID == "" {
			m.Kind = models.KindSeed
		} else {
			m.Kind = models.KindOrdinary
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
