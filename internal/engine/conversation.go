// Package engine orchestrates turn-taking between agents and the
// single-loop reasoning session. It owns message creation: every
// thought is scored, persisted through the memory tier and published
// on a bounded outbound channel exactly once, at creation time.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reverie-ai/reverie/internal/memory"
	"github.com/reverie-ai/reverie/internal/models"
	"github.com/reverie-ai/reverie/internal/observability"
	"github.com/reverie-ai/reverie/internal/reason"
	"github.com/reverie-ai/reverie/internal/scoring"
	"github.com/reverie-ai/reverie/internal/seed"
)

// Config bounds the resources one engine may hold.
type Config struct {
	AgentBufferCap int // per-agent recent-message buffer, default 10
	ChannelCap     int // outbound channel capacity, default 256
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		AgentBufferCap: 10,
		ChannelCap:     256,
	}
}

// conversation pairs the public record with its processing bookkeeping.
type conversation struct {
	mu   sync.Mutex
	data models.Conversation
}

// ConversationEngine schedules multi-agent conversations. One
// goroutine per conversation calls Process; monitors drain Events from
// their own goroutines.
type ConversationEngine struct {
	cfg      *Config
	store    memory.Store
	reasoner *reason.Engine
	seeder   *seed.Seeder
	scorer   *scoring.Scorer
	lineage  memory.LineageStore // optional
	rng      *rand.Rand
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	log      *slog.Logger

	mu            sync.RWMutex
	agents        []models.Agent
	agentNames    map[string]string
	buffers       map[string]*memory.ShortTermBuffer
	conversations map[string]*conversation

	events chan models.Thought
}

// NewConversationEngine wires the scheduler. rng drives speaker and
// pacing selection; pass a clock of your own under test.
func NewConversationEngine(cfg *Config, store memory.Store, reasoner *reason.Engine, seeder *seed.Seeder, scorer *scoring.Scorer, rng *rand.Rand) *ConversationEngine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	e := &ConversationEngine{
		cfg:           cfg,
		store:         store,
		reasoner:      reasoner,
		seeder:        seeder,
		scorer:        scorer,
		rng:           rng,
		now:           time.Now,
		log:           observability.WithComponent("conversation"),
		agentNames:    map[string]string{},
		buffers:       map[string]*memory.ShortTermBuffer{},
		conversations: map[string]*conversation{},
		events:        make(chan models.Thought, cfg.ChannelCap),
	}
	e.sleep = e.defaultSleep
	return e
}

// SetClock replaces the engine clock. Test use.
func (e *ConversationEngine) SetClock(now func() time.Time) { e.now = now }

// SetSleep replaces the pacing sleep. A nil-op function removes pacing
// entirely, which is safe: pacing is a soft rate limit on the backend,
// not a correctness requirement.
func (e *ConversationEngine) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	e.sleep = fn
}

// SetLineage attaches an optional gold-strike lineage recorder.
func (e *ConversationEngine) SetLineage(l memory.LineageStore) { e.lineage = l }

// Events is the bounded outbound channel. Publishing blocks when it is
// full, so a slow consumer backpressures the producing conversations
// instead of growing memory without bound.
func (e *ConversationEngine) Events() <-chan models.Thought { return e.events }

// AddAgent registers and persists an agent. Agents are created once at
// system start and never removed within a run.
func (e *ConversationEngine) AddAgent(ctx context.Context, a models.Agent) error {
	e.mu.Lock()
	e.agents = append(e.agents, a)
	e.agentNames[a.ID] = a.Name
	e.buffers[a.ID] = memory.NewShortTermBuffer(e.cfg.AgentBufferCap)
	e.mu.Unlock()

	if err := e.store.SaveAgent(ctx, a); err != nil {
		return &memory.StoreError{Op: "save agent", Err: err}
	}
	e.log.Info("agent registered", "name", a.Name, "id", a.ID, "traits", a.Traits)
	return nil
}

// Agents returns the registered agents.
func (e *ConversationEngine) Agents() []models.Agent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Agent, len(e.agents))
	copy(out, e.agents)
	return out
}

// Start creates a conversation, seeds it and transitions it to ACTIVE.
// Calling Start again with the same id is a no-op returning the
// existing conversation: the seed is never duplicated.
func (e *ConversationEngine) Start(ctx context.Context, id, topic string) (models.Conversation, error) {
	e.mu.Lock()
	if existing, ok := e.conversations[id]; ok {
		e.mu.Unlock()
		existing.mu.Lock()
		defer existing.mu.Unlock()
		return existing.data, nil
	}

	if len(e.agents) == 0 {
		e.mu.Unlock()
		return models.Conversation{}, fmt.Errorf("no agents registered")
	}

	first := e.agents[e.rng.Intn(len(e.agents))]
	participants := make([]string, len(e.agents))
	for i, a := range e.agents {
		participants[i] = a.ID
	}

	content := topic
	if content == "" {
		content = e.seeder.ConversationSeed()
	}

	seedMsg := models.Thought{
		ID:             "msg_" + uuid.NewString(),
		Timestamp:      e.now(),
		AgentID:        first.ID,
		Content:        content,
		Kind:           models.KindSeed,
		Score:          e.scorer.Score(content),
		ConversationID: id,
	}

	conv := &conversation{
		data: models.Conversation{
			ID:           id,
			Topic:        topic,
			State:        models.StateActive,
			Thoughts:     []models.Thought{seedMsg},
			Participants: participants,
			StartedAt:    seedMsg.Timestamp,
		},
	}
	e.conversations[id] = conv
	e.mu.Unlock()

	if err := e.store.SaveMessage(ctx, seedMsg); err != nil {
		return conv.snapshot(), &memory.StoreError{Op: "save seed message", Err: err}
	}
	if err := e.store.SaveConversation(ctx, conv.snapshot()); err != nil {
		return conv.snapshot(), &memory.StoreError{Op: "save conversation", Err: err}
	}
	if err := e.publish(ctx, seedMsg); err != nil {
		return conv.snapshot(), err
	}

	e.log.Info("conversation started", "id", id, "first_speaker", first.Name)
	return conv.snapshot(), nil
}

// Process runs up to maxExchanges turns. The speaker for each turn is
// drawn uniformly among all agents except the immediately preceding
// speaker, which forces strict alternation with two agents; with a
// single agent the candidate set is empty and the loop terminates at
// once with zero exchanges. Any error inside an iteration aborts the
// whole loop. The conversation transitions to COMPLETED regardless of
// whether the target exchange count was reached.
func (e *ConversationEngine) Process(ctx context.Context, id string, maxExchanges int) error {
	e.mu.RLock()
	conv, ok := e.conversations[id]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("conversation %s not found", id)
	}

	var loopErr error
	exchanges := 0

	for exchanges < maxExchanges {
		if err := ctx.Err(); err != nil {
			loopErr = err
			break
		}

		speaker, ok := e.nextSpeaker(conv)
		if !ok {
			// No eligible speaker. Normal termination, not an error.
			break
		}

		if err := e.takeTurn(ctx, conv, speaker); err != nil {
			e.log.Error("conversation turn failed", "id", id, "error", err)
			loopErr = err
			break
		}
		exchanges++

		if err := e.pace(ctx); err != nil {
			loopErr = err
			break
		}
	}

	// The final state write must survive loop cancellation, so it gets
	// its own short deadline instead of the loop context.
	finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.complete(finishCtx, conv, exchanges)
	return loopErr
}

// nextSpeaker picks uniformly among every agent except the last one to
// speak.
func (e *ConversationEngine) nextSpeaker(conv *conversation) (models.Agent, bool) {
	conv.mu.Lock()
	var lastSpeaker string
	if last := conv.data.LastThought(); last != nil {
		lastSpeaker = last.AgentID
	}
	conv.mu.Unlock()

	e.mu.RLock()
	defer e.mu.RUnlock()

	candidates := make([]models.Agent, 0, len(e.agents))
	for _, a := range e.agents {
		if a.ID != lastSpeaker {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return models.Agent{}, false
	}
	return candidates[e.rng.Intn(len(candidates))], true
}

func (e *ConversationEngine) takeTurn(ctx context.Context, conv *conversation, speaker models.Agent) error {
	conv.mu.Lock()
	history := make([]models.Thought, len(conv.data.Thoughts))
	copy(history, conv.data.Thoughts)
	conv.mu.Unlock()

	e.mu.RLock()
	names := make(map[string]string, len(e.agentNames))
	for k, v := range e.agentNames {
		names[k] = v
	}
	e.mu.RUnlock()

	content := e.reasoner.GenerateResponse(ctx, speaker, history, names)
	score := e.scorer.Score(content)

	msg := models.Thought{
		ID:             "msg_" + uuid.NewString(),
		Timestamp:      e.now(),
		AgentID:        speaker.ID,
		Content:        content,
		Kind:           models.KindOrdinary,
		ParentID:       history[len(history)-1].ID,
		Score:          score,
		ConversationID: conv.data.ID,
	}

	conv.mu.Lock()
	conv.data.Thoughts = append(conv.data.Thoughts, msg)
	conv.mu.Unlock()

	if err := e.store.SaveMessage(ctx, msg); err != nil {
		return &memory.StoreError{Op: "save message", Err: err}
	}
	if e.scorer.IsGold(content, score) {
		if err := e.recordStrike(ctx, msg); err != nil {
			return err
		}
	}
	if err := e.publish(ctx, msg); err != nil {
		return err
	}

	e.mu.RLock()
	buf := e.buffers[speaker.ID]
	e.mu.RUnlock()
	if buf != nil {
		buf.Add(msg)
	}
	return nil
}

func (e *ConversationEngine) recordStrike(ctx context.Context, msg models.Thought) error {
	golden := models.GoldenThought{
		ID:               msg.ID,
		Timestamp:        msg.Timestamp,
		Content:          msg.Content,
		Score:            msg.Score,
		DiscoveryContext: fmt.Sprintf("conversation %s", msg.ConversationID),
	}
	if err := e.store.SaveGolden(ctx, golden); err != nil {
		return &memory.StoreError{Op: "save golden", Err: err}
	}
	if e.lineage != nil {
		if err := e.lineage.RecordStrike(ctx, msg); err != nil {
			// lineage is best-effort observability, not part of the
			// write path
			e.log.Error("lineage record failed", "id", msg.ID, "error", err)
		}
	}
	return nil
}

func (e *ConversationEngine) complete(ctx context.Context, conv *conversation, exchanges int) {
	conv.mu.Lock()
	conv.data.State = models.StateCompleted
	conv.data.EndedAt = e.now()
	snapshot := conv.data
	conv.mu.Unlock()

	if err := e.store.SaveConversation(ctx, snapshot); err != nil {
		e.log.Error("conversation bookkeeping failed", "id", snapshot.ID, "error", err)
	}
	e.log.Info("conversation completed", "id", snapshot.ID, "exchanges", exchanges)
}

// Conversation returns a snapshot of one conversation.
func (e *ConversationEngine) Conversation(id string) (models.Conversation, bool) {
	e.mu.RLock()
	conv, ok := e.conversations[id]
	e.mu.RUnlock()
	if !ok {
		return models.Conversation{}, false
	}
	return conv.snapshot(), true
}

// AgentBuffer returns the bounded per-agent recent-message buffer.
func (e *ConversationEngine) AgentBuffer(agentID string) *memory.ShortTermBuffer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buffers[agentID]
}

func (e *ConversationEngine) publish(ctx context.Context, t models.Thought) error {
	select {
	case e.events <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pace applies the jittered inter-turn delay, uniform in [2,5) seconds.
// A soft rate limit on the inference backend, not a correctness
// requirement.
func (e *ConversationEngine) pace(ctx context.Context) error {
	d := time.Duration((2 + e.rng.Float64()*3) * float64(time.Second))
	return e.sleep(ctx, d)
}

func (e *ConversationEngine) defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *conversation) snapshot() models.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.data
	out.Thoughts = make([]models.Thought, len(c.data.Thoughts))
	copy(out.Thoughts, c.data.Thoughts)
	out.Participants = append([]string(nil), c.data.Participants...)
	return out
}
