package models

import "time"

// Kind classifies a thought. The set is closed: code that branches on
// Kind must handle every value.
type Kind string

const (
	KindSeed       Kind = "seed"
	KindReasoning  Kind = "reasoning"
	KindGoldStrike Kind = "gold_strike"
	KindOrdinary   Kind = "ordinary"
)

// Valid reports whether k is one of the closed Kind values.
func (k Kind) Valid() bool {
	switch k {
	case KindSeed, KindReasoning, KindGoldStrike, KindOrdinary:
		return true
	}
	return false
}

// Thought is a single generated text unit plus its metadata. Thoughts are
// append-only: Score and Kind are assigned exactly once, at creation
// time, and thoughts are never deleted.
type Thought struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	AgentID        string    `json:"agent_id,omitempty"` // empty in single-loop mode
	Content        string    `json:"content"`
	Kind           Kind      `json:"kind"`
	ParentID       string    `json:"parent_id,omitempty"` // back-reference, never ownership
	Score          float64   `json:"score"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
}

// GoldenThought is the durable record materialized when a thought
// crosses the gold threshold.
type GoldenThought struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	Content          string    `json:"content"`
	Score            float64   `json:"score"`
	DiscoveryContext string    `json:"discovery_context"`
}

// Agent is a simulated conversational participant. Traits, style and
// focus are fixed at creation and never change within a run.
type Agent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Traits    []string  `json:"traits"`
	Focus     string    `json:"focus"`
	Style     string    `json:"style"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationState tracks the lifecycle of a conversation.
// Transitions are one-way: Unstarted -> Active -> Completed.
type ConversationState string

const (
	StateUnstarted ConversationState = "unstarted"
	StateActive    ConversationState = "active"
	StateCompleted ConversationState = "completed"
)

// Conversation is an ordered, append-only sequence of thoughts sharing
// an id. Timestamps within one conversation are non-decreasing.
type Conversation struct {
	ID           string            `json:"id"`
	Topic        string            `json:"topic,omitempty"`
	State        ConversationState `json:"state"`
	Thoughts     []Thought         `json:"thoughts"`
	Participants []string          `json:"participants"`
	StartedAt    time.Time         `json:"started_at"`
	EndedAt      time.Time         `json:"ended_at,omitempty"`
}

// LastThought returns the most recent thought, or nil if the
// conversation is empty.
func (c *Conversation) LastThought() *Thought {
	if len(c.Thoughts) == 0 {
		return nil
	}
	return &c.Thoughts[len(c.Thoughts)-1]
}

// Stats holds the aggregate counters exposed to monitors.
type Stats struct {
	TotalConversations int `json:"total_conversations"`
	TotalMessages      int `json:"total_messages"`
	MessagesToday      int `json:"messages_today"`
	TotalAgents        int `json:"total_agents"`
}
