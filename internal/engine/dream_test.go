package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/reverie-ai/reverie/internal/inference"
	"github.com/reverie-ai/reverie/internal/memory"
	"github.com/reverie-ai/reverie/internal/models"
	"github.com/reverie-ai/reverie/internal/output"
	"github.com/reverie-ai/reverie/internal/reason"
	"github.com/reverie-ai/reverie/internal/scoring"
	"github.com/reverie-ai/reverie/internal/seed"
)

// dreamClient scripts single-loop completions and can cancel the run
// context at a chosen call.
type dreamClient struct {
	mu       sync.Mutex
	calls    int
	goldAt   int
	cancelAt int
	cancel   context.CancelFunc
}

func (c *dreamClient) Complete(ctx context.Context, model, prompt string, params inference.Params) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.cancelAt > 0 && c.calls == c.cancelAt && c.cancel != nil {
		c.cancel()
	}
	if c.goldAt > 0 && c.calls == c.goldAt {
		return "Suddenly everything connects! This is a eureka moment", nil
	}
	return fmt.Sprintf("a plain observation number %d", c.calls), nil
}

func (c *dreamClient) CompleteChat(ctx context.Context, model, prompt string, params inference.Params) (string, error) {
	return c.Complete(ctx, model, prompt, params)
}

func newTestSession(t *testing.T, store memory.Store, client reason.Client, maxItems int) (*DreamSession, *output.Manager) {
	t.Helper()
	if store == nil {
		store = openTestStore(t)
	}
	mem := memory.New(store, memory.DefaultShortTermCap)
	rng := rand.New(rand.NewSource(11))
	reasoner := reason.NewEngine(client, "gemma2:2b", rng)
	seeder := seed.New(rand.New(rand.NewSource(11)), time.Now)
	outputs, err := output.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	s := NewDreamSession(mem, reasoner, seeder, scoring.New(), outputs, 0, maxItems, rng)
	s.SetClock(tickingClock())
	return s, outputs
}

func TestDreamRunGeneratesUpToCap(t *testing.T) {
	s, outputs := newTestSession(t, nil, &dreamClient{}, 5)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	thoughts := s.Thoughts()
	if len(thoughts) != 5 {
		t.Fatalf("got %d thoughts, want 5", len(thoughts))
	}
	if thoughts[0].Kind != models.KindSeed {
		t.Errorf("first thought kind = %s, want %s", thoughts[0].Kind, models.KindSeed)
	}
	if thoughts[0].ParentID != "" {
		t.Errorf("seed must have no parent")
	}
	for i := 1; i < len(thoughts); i++ {
		if thoughts[i].Kind != models.KindReasoning {
			t.Errorf("thought %d kind = %s, want %s", i, thoughts[i].Kind, models.KindReasoning)
		}
		if thoughts[i].ParentID != thoughts[i-1].ID {
			t.Errorf("thought %d parent = %q, want %q", i, thoughts[i].ParentID, thoughts[i-1].ID)
		}
	}

	// one summary artifact per finished session
	entries, err := os.ReadDir(outputs.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	found := false
	for _, f := range entries {
		if strings.HasPrefix(f.Name(), "session_") {
			found = true
		}
	}
	if !found {
		t.Error("no session summary written")
	}
}

func TestDreamGoldStrike(t *testing.T) {
	store := openTestStore(t)
	s, outputs := newTestSession(t, store, &dreamClient{goldAt: 2}, 4)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	goldCount := 0
	for _, th := range s.Thoughts() {
		if th.Kind == models.KindGoldStrike {
			goldCount++
		}
	}
	if goldCount != 1 {
		t.Fatalf("got %d gold strikes, want 1", goldCount)
	}

	golden, err := store.Golden(context.Background())
	if err != nil {
		t.Fatalf("Golden: %v", err)
	}
	if len(golden) != 1 {
		t.Fatalf("store has %d golden records, want 1", len(golden))
	}
	if !strings.Contains(golden[0].Content, "eureka") {
		t.Errorf("unexpected golden content %q", golden[0].Content)
	}

	entries, err := os.ReadDir(outputs.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	found := false
	for _, f := range entries {
		if strings.HasPrefix(f.Name(), "golden_") {
			found = true
		}
	}
	if !found {
		t.Error("no golden artifact written")
	}
}

func TestDreamSeedIsNeverGoldFlagged(t *testing.T) {
	// Even a breakthrough-looking seed keeps its seed kind; gold
	// flagging applies to generated thoughts only.
	s, _ := newTestSession(t, nil, &dreamClient{}, 1)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := s.Thoughts()[0].Kind; got != models.KindSeed {
		t.Errorf("seed kind = %s, want %s", got, models.KindSeed)
	}
}

func TestDreamCancellationStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &dreamClient{cancelAt: 3, cancel: cancel}
	s, _ := newTestSession(t, nil, client, 50)

	if err := s.Run(ctx); err != nil {
		t.Fatalf("cancellation is a normal stop, got error %v", err)
	}
	n := len(s.Thoughts())
	if n >= 50 {
		t.Fatalf("cancellation did not stop the loop, %d thoughts", n)
	}
	if n < 3 {
		// seed plus the two generations recorded before the cancel
		t.Errorf("got %d thoughts, want at least 3", n)
	}
}

func TestDreamStoreFailureAborts(t *testing.T) {
	store := &failingThoughtStore{Store: openTestStore(t), allowed: 2}
	mem := memory.New(store, memory.DefaultShortTermCap)
	rng := rand.New(rand.NewSource(3))
	reasoner := reason.NewEngine(&dreamClient{}, "gemma2:2b", rng)
	seeder := seed.New(rand.New(rand.NewSource(3)), time.Now)
	s := NewDreamSession(mem, reasoner, seeder, scoring.New(), nil, 0, 10, rng)
	s.SetClock(tickingClock())

	err := s.Run(context.Background())
	var storeErr *memory.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("Run error = %v, want *memory.StoreError", err)
	}
	if len(s.Thoughts()) != 2 {
		t.Errorf("got %d thoughts before abort, want 2", len(s.Thoughts()))
	}
}

func TestDreamPublishesOnEvents(t *testing.T) {
	s, _ := newTestSession(t, nil, &dreamClient{}, 3)
	events := make(chan models.Thought, 8)
	s.SetEvents(events)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(events)
	var got []models.Thought
	for th := range events {
		got = append(got, th)
	}
	if len(got) != 3 {
		t.Fatalf("published %d events, want 3", len(got))
	}
	if got[0].Kind != models.KindSeed {
		t.Errorf("first event kind = %s, want %s", got[0].Kind, models.KindSeed)
	}
}

type failingThoughtStore struct {
	memory.Store
	allowed int
	calls   int
}

func (s *failingThoughtStore) SaveThought(ctx context.Context, th models.Thought) error {
	s.calls++
	if s.calls > s.allowed {
		return errors.New("disk full")
	}
	return s.Store.SaveThought(ctx, th)
}
