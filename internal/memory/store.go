// Package memory holds the dual-tier store: a bounded in-process
// short-term buffer and a durable key-addressed store behind the Store
// interface, with SQLite and Badger backends.
package memory

import (
	"context"
	"fmt"

	"github.com/reverie-ai/reverie/internal/models"
)

// Store is the durable tier. All Save methods upsert by id: re-saving an
// existing id overwrites in place, it is not an error and never
// duplicates. There is no cross-record transaction discipline; writers
// to the same id race on last-write-wins.
type Store interface {
	SaveThought(ctx context.Context, t models.Thought) error
	SaveGolden(ctx context.Context, g models.GoldenThought) error
	SaveAgent(ctx context.Context, a models.Agent) error
	SaveMessage(ctx context.Context, m models.Thought) error
	SaveConversation(ctx context.Context, c models.Conversation) error

	// Golden returns all golden records ordered by score descending,
	// ties broken by timestamp descending.
	Golden(ctx context.Context) ([]models.GoldenThought, error)
	Agents(ctx context.Context) ([]models.Agent, error)
	// RecentMessages returns up to limit messages across all
	// conversations, newest first.
	RecentMessages(ctx context.Context, limit int) ([]models.Thought, error)
	// Transcript returns one conversation's messages ordered by
	// timestamp ascending.
	Transcript(ctx context.Context, conversationID string) ([]models.Thought, error)
	Stats(ctx context.Context) (models.Stats, error)

	Close() error
}

// StoreError marks a durable-write failure so callers can distinguish
// it from transient backend degradation. It aborts the running session
// loop rather than being silently absorbed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("durable store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
