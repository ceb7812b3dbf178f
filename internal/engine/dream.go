package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/reverie-ai/reverie/internal/memory"
	"github.com/reverie-ai/reverie/internal/models"
	"github.com/reverie-ai/reverie/internal/observability"
	"github.com/reverie-ai/reverie/internal/output"
	"github.com/reverie-ai/reverie/internal/reason"
	"github.com/reverie-ai/reverie/internal/scoring"
	"github.com/reverie-ai/reverie/internal/seed"
)

const dreamContextWindow = 10

// DreamSession runs the single-loop reasoning mode: one seed, then a
// chain of thoughts each generated from the most recent stored units.
// Gold strikes are flagged at creation time and written out as
// artifacts as they happen.
type DreamSession struct {
	mem      *memory.Memory
	reasoner *reason.Engine
	seeder   *seed.Seeder
	scorer   *scoring.Scorer
	outputs  *output.Manager
	lineage  memory.LineageStore // optional
	limiter  *rate.Limiter
	rng      *rand.Rand
	now      func() time.Time
	maxItems int
	events   chan<- models.Thought // optional
	log      *slog.Logger

	started  time.Time
	thoughts []models.Thought
}

// NewDreamSession builds a session. interval is the fixed pacing
// between iterations; zero or negative removes pacing. maxItems bounds
// the number of thoughts generated, seed included.
func NewDreamSession(mem *memory.Memory, reasoner *reason.Engine, seeder *seed.Seeder, scorer *scoring.Scorer, outputs *output.Manager, interval time.Duration, maxItems int, rng *rand.Rand) *DreamSession {
	return &DreamSession{
		mem:      mem,
		reasoner: reasoner,
		seeder:   seeder,
		scorer:   scorer,
		outputs:  outputs,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		rng:      rng,
		now:      time.Now,
		maxItems: maxItems,
		log:      observability.WithComponent("dream"),
	}
}

// SetClock replaces the session clock. Test use.
func (s *DreamSession) SetClock(now func() time.Time) { s.now = now }

// SetEvents attaches an outbound channel. Each generated thought is
// published on it with the same blocking backpressure semantics as the
// conversation engine.
func (s *DreamSession) SetEvents(ch chan<- models.Thought) { s.events = ch }

// SetLineage attaches an optional gold-strike lineage recorder.
func (s *DreamSession) SetLineage(l memory.LineageStore) { s.lineage = l }

// Run executes the session until the item cap is reached, the context
// is cancelled, or a storage write fails. Cancellation is cooperative:
// it is observed at iteration boundaries and by in-flight writes, and
// is not reported as an error. A storage failure aborts the session
// and is returned to the caller; nothing is silently dropped.
func (s *DreamSession) Run(ctx context.Context) error {
	s.started = s.now()
	s.log.Info("dream session starting", "max_thoughts", s.maxItems)

	seedThought := models.Thought{
		ID:        "thought_" + uuid.NewString(),
		Timestamp: s.now(),
		Content:   s.seeder.Generate(),
		Kind:      models.KindSeed,
	}
	if err := s.record(ctx, seedThought); err != nil {
		return err
	}

	var runErr error
	for len(s.thoughts) < s.maxItems {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := s.limiter.Wait(ctx); err != nil {
			runErr = err
			break
		}

		contextUnits := s.mem.Recent(dreamContextWindow)
		content := s.reasoner.GenerateThought(ctx, contextUnits, "")

		t := models.Thought{
			ID:        "thought_" + uuid.NewString(),
			Timestamp: s.now(),
			Content:   content,
			Kind:      models.KindReasoning,
		}
		if n := len(s.thoughts); n > 0 {
			t.ParentID = s.thoughts[n-1].ID
		}

		if err := s.record(ctx, t); err != nil {
			runErr = err
			break
		}
	}

	if err := s.writeSummary(); err != nil {
		s.log.Error("session summary failed", "error", err)
	}
	s.log.Info("dream session finished", "thoughts", len(s.thoughts), "golden", s.goldenCount())

	if runErr == nil {
		return nil
	}
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		// Cancellation is the normal way to stop an open-ended session.
		return nil
	}
	var storeErr *memory.StoreError
	if errors.As(runErr, &storeErr) {
		s.log.Error("dream session aborted on storage failure", "op", storeErr.Op, "error", storeErr.Err)
	}
	return runErr
}

// record scores, gold-flags, persists and publishes one thought. Kind
// is settled here, before the first write, and never mutated after.
func (s *DreamSession) record(ctx context.Context, t models.Thought) error {
	t.Score = s.scorer.Score(t.Content)

	if t.Kind != models.KindSeed && s.scorer.IsGold(t.Content, t.Score) {
		t.Kind = models.KindGoldStrike
	}

	if err := s.mem.Add(ctx, t); err != nil {
		return err
	}

	if t.Kind == models.KindGoldStrike {
		if err := s.handleGold(ctx, t); err != nil {
			return err
		}
	}

	s.thoughts = append(s.thoughts, t)

	if s.events != nil {
		select {
		case s.events <- t:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.log.Debug("thought recorded", "id", t.ID, "kind", t.Kind, "score", t.Score)
	return nil
}

func (s *DreamSession) handleGold(ctx context.Context, t models.Thought) error {
	golden := models.GoldenThought{
		ID:               t.ID,
		Timestamp:        t.Timestamp,
		Content:          t.Content,
		Score:            t.Score,
		DiscoveryContext: fmt.Sprintf("dream session, thought %d", len(s.thoughts)+1),
	}
	if err := s.mem.AddGolden(ctx, golden); err != nil {
		return err
	}
	if s.outputs != nil {
		if err := s.outputs.SaveGolden(golden); err != nil {
			s.log.Error("golden artifact write failed", "id", t.ID, "error", err)
		}
	}
	if s.lineage != nil {
		if err := s.lineage.RecordStrike(ctx, t); err != nil {
			s.log.Error("lineage record failed", "id", t.ID, "error", err)
		}
	}
	s.log.Info("gold strike", "id", t.ID, "score", t.Score)
	return nil
}

func (s *DreamSession) writeSummary() error {
	if s.outputs == nil {
		return nil
	}
	return s.outputs.WriteSessionSummary(output.SessionReport{
		StartedAt: s.started,
		EndedAt:   s.now(),
		Thoughts:  s.thoughts,
	})
}

// Thoughts returns everything generated so far, seed included.
func (s *DreamSession) Thoughts() []models.Thought {
	out := make([]models.Thought, len(s.thoughts))
	copy(out, s.thoughts)
	return out
}

func (s *DreamSession) goldenCount() int {
	n := 0
	for _, t := range s.thoughts {
		if t.Kind == models.KindGoldStrike {
			n++
		}
	}
	return n
}
