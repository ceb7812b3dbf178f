package memory

import (
	"context"

	"github.com/reverie-ai/reverie/internal/models"
)

// Memory is the dual-tier store handed to session loops: every added
// thought lands in the short-term buffer and is upserted into the
// durable tier. Reads of recent context come from the buffer alone.
type Memory struct {
	buffer *ShortTermBuffer
	store  Store
}

func New(store Store, shortTermCap int) *Memory {
	return &Memory{
		buffer: NewShortTermBuffer(shortTermCap),
		store:  store,
	}
}

// Add writes t through both tiers. The durable write is an upsert by
// id; a failure there is returned as a *StoreError while the buffer
// keeps the entry either way.
func (m *Memory) Add(ctx context.Context, t models.Thought) error {
	m.buffer.Add(t)
	return storeErr("save thought", m.store.SaveThought(ctx, t))
}

// AddGolden upserts g into the golden table. Independent of the
// short-term buffer.
func (m *Memory) AddGolden(ctx context.Context, g models.GoldenThought) error {
	return storeErr("save golden", m.store.SaveGolden(ctx, g))
}

// Recent returns the last n thoughts from the short-term buffer only.
func (m *Memory) Recent(n int) []models.Thought {
	return m.buffer.Recent(n)
}

// Golden returns all golden records, best first.
func (m *Memory) Golden(ctx context.Context) ([]models.GoldenThought, error) {
	return m.store.Golden(ctx)
}

// Store exposes the durable tier for monitors and multi-party writes.
func (m *Memory) Store() Store { return m.store }
