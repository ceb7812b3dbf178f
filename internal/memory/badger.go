package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/reverie-ai/reverie/internal/models"
)

const (
	prefixThought      = "thought:"
	prefixGolden       = "golden:"
	prefixAgent        = "agent:"
	prefixMessage      = "message:"
	prefixConversation = "conversation:"
)

// BadgerStore implements Store on BadgerDB for deployments that cannot
// carry the cgo SQLite driver. Records are JSON values under typed key
// prefixes; list reads iterate a prefix and sort in memory.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (creating if needed) a Badger database at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) put(prefix, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefix+id), data)
	})
}

func (s *BadgerStore) scan(prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveThought upserts a thought by id.
func (s *BadgerStore) SaveThought(ctx context.Context, t models.Thought) error {
	return s.put(prefixThought, t.ID, t)
}

// SaveGolden upserts a golden record by id.
func (s *BadgerStore) SaveGolden(ctx context.Context, g models.GoldenThought) error {
	return s.put(prefixGolden, g.ID, g)
}

// SaveAgent upserts an agent by id.
func (s *BadgerStore) SaveAgent(ctx context.Context, a models.Agent) error {
	return s.put(prefixAgent, a.ID, a)
}

// SaveMessage upserts a conversation message by id.
func (s *BadgerStore) SaveMessage(ctx context.Context, m models.Thought) error {
	return s.put(prefixMessage, m.ID, m)
}

// SaveConversation upserts conversation bookkeeping by id.
func (s *BadgerStore) SaveConversation(ctx context.Context, c models.Conversation) error {
	meta := c
	meta.Thoughts = nil // transcript lives in the messages prefix
	return s.put(prefixConversation, c.ID, meta)
}

// Golden returns all golden records ordered by score descending then
// timestamp descending.
func (s *BadgerStore) Golden(ctx context.Context) ([]models.GoldenThought, error) {
	var out []models.GoldenThought
	err := s.scan(prefixGolden, func(val []byte) error {
		var g models.GoldenThought
		if err := json.Unmarshal(val, &g); err != nil {
			return nil // skip malformed entries
		}
		out = append(out, g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Agents returns all agents ordered by name.
func (s *BadgerStore) Agents(ctx context.Context) ([]models.Agent, error) {
	var out []models.Agent
	err := s.scan(prefixAgent, func(val []byte) error {
		var a models.Agent
		if err := json.Unmarshal(val, &a); err != nil {
			return nil
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RecentMessages returns up to limit messages, newest first.
func (s *BadgerStore) RecentMessages(ctx context.Context, limit int) ([]models.Thought, error) {
	msgs, err := s.allMessages()
	if err != nil {
		return nil, err
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Timestamp.After(msgs[j].Timestamp) })
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

// Transcript returns one conversation's messages ordered by timestamp
// ascending.
func (s *BadgerStore) Transcript(ctx context.Context, conversationID string) ([]models.Thought, error) {
	msgs, err := s.allMessages()
	if err != nil {
		return nil, err
	}

	var out []models.Thought
	for _, m := range msgs {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Stats aggregates the dashboard counters.
func (s *BadgerStore) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats

	msgs, err := s.allMessages()
	if err != nil {
		return stats, err
	}

	conversations := map[string]bool{}
	today := time.Now().Format("2006-01-02")
	for _, m := range msgs {
		conversations[m.ConversationID] = true
		if strings.HasPrefix(m.Timestamp.Format(time.RFC3339), today) {
			stats.MessagesToday++
		}
	}
	stats.TotalMessages = len(msgs)
	stats.TotalConversations = len(conversations)

	err = s.scan(prefixAgent, func(val []byte) error {
		stats.TotalAgents++
		return nil
	})
	return stats, err
}

// Close closes the Badger instance.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) allMessages() ([]models.Thought, error) {
	var out []models.Thought
	err := s.scan(prefixMessage, func(val []byte) error {
		var m models.Thought
		if err := json.Unmarshal(val, &m); err != nil {
			return nil
		}
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
