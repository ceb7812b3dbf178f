package memory

import (
	"sync"

	"github.com/reverie-ai/reverie/internal/models"
)

// DefaultShortTermCap bounds the short-term buffer when no cap is
// configured.
const DefaultShortTermCap = 20

// ShortTermBuffer is the bounded FIFO tier. Mutation is guarded by a
// mutex, but the contract is single-writer/multi-reader: exactly one
// producer goroutine appends, any number of readers may call Recent.
// Multiple unsynchronized producers must serialize externally.
type ShortTermBuffer struct {
	mu       sync.RWMutex
	cap      int
	thoughts []models.Thought
}

func NewShortTermBuffer(capacity int) *ShortTermBuffer {
	if capacity <= 0 {
		capacity = DefaultShortTermCap
	}
	return &ShortTermBuffer{cap: capacity}
}

// Add appends t, evicting the oldest entry once capacity is exceeded.
func (b *ShortTermBuffer) Add(t models.Thought) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.thoughts = append(b.thoughts, t)
	if len(b.thoughts) > b.cap {
		b.thoughts = b.thoughts[1:]
	}
}

// Recent returns the last n thoughts, oldest first. It is served only
// from this buffer: after a restart the buffer is empty until
// repopulated even though durable history exists. That tradeoff is
// deliberate.
func (b *ShortTermBuffer) Recent(n int) []models.Thought {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n > len(b.thoughts) {
		n = len(b.thoughts)
	}
	if n <= 0 {
		return nil
	}
	out := make([]models.Thought, n)
	copy(out, b.thoughts[len(b.thoughts)-n:])
	return out
}

func (b *ShortTermBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.thoughts)
}
