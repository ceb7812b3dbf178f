package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/reverie-ai/reverie/internal/models"
)

func makeThought(i int) models.Thought {
	return models.Thought{
		ID:        fmt.Sprintf("thought_%d", i),
		Timestamp: time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
		Content:   fmt.Sprintf("content %d", i),
		Kind:      models.KindReasoning,
	}
}

func TestBufferEvictsOldestBeyondCap(t *testing.T) {
	const cap = 20
	b := NewShortTermBuffer(cap)

	for i := 0; i < cap+15; i++ {
		b.Add(makeThought(i))
	}

	if b.Len() != cap {
		t.Fatalf("buffer length %d, want cap %d", b.Len(), cap)
	}

	recent := b.Recent(cap)
	if len(recent) != cap {
		t.Fatalf("Recent returned %d, want %d", len(recent), cap)
	}
	// Oldest surviving entry is the one just past the eviction window.
	if recent[0].ID != "thought_15" {
		t.Errorf("oldest surviving = %s, want thought_15", recent[0].ID)
	}
	if recent[cap-1].ID != fmt.Sprintf("thought_%d", cap+14) {
		t.Errorf("newest = %s", recent[cap-1].ID)
	}
}

func TestBufferRecentReturnsMinOfNAndCap(t *testing.T) {
	b := NewShortTermBuffer(5)
	for i := 0; i < 12; i++ {
		b.Add(makeThought(i))
	}

	cases := []struct{ ask, want int }{
		{1, 1}, {3, 3}, {5, 5}, {10, 5}, {0, 0},
	}
	for _, tc := range cases {
		if got := len(b.Recent(tc.ask)); got != tc.want {
			t.Errorf("Recent(%d) returned %d, want %d", tc.ask, got, tc.want)
		}
	}
}

func TestBufferRecentOrderedOldestFirst(t *testing.T) {
	b := NewShortTermBuffer(10)
	for i := 0; i < 4; i++ {
		b.Add(makeThought(i))
	}

	recent := b.Recent(3)
	want := []string{"thought_1", "thought_2", "thought_3"}
	for i, w := range want {
		if recent[i].ID != w {
			t.Errorf("recent[%d] = %s, want %s", i, recent[i].ID, w)
		}
	}
}

func TestBufferRecentCopyIsIndependent(t *testing.T) {
	b := NewShortTermBuffer(10)
	b.Add(makeThought(0))

	recent := b.Recent(1)
	recent[0].Content = "mutated"

	if got := b.Recent(1)[0].Content; got != "content 0" {
		t.Errorf("buffer content mutated through returned slice: %q", got)
	}
}
