// Package reason turns recent context into prompts and drives the
// inference capability. Backend failures degrade locally to canned
// filler text; they are logged and never propagated to the loop.
package reason

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/reverie-ai/reverie/internal/inference"
	"github.com/reverie-ai/reverie/internal/models"
	"github.com/reverie-ai/reverie/internal/observability"
)

// Client is the narrow inference capability this package consumes.
// Both wire shapes are blocking with a fixed timeout and not retried.
type Client interface {
	Complete(ctx context.Context, model, prompt string, params inference.Params) (string, error)
	CompleteChat(ctx context.Context, model, prompt string, params inference.Params) (string, error)
}

// Mode selects the reasoning instruction for a single-loop thought.
type Mode string

const (
	ModeFreeAssociation    Mode = "free_association"
	ModeLogicalDeduction   Mode = "logical_deduction"
	ModeCreativeWhatIf     Mode = "creative_what_if"
	ModePatternRecognition Mode = "pattern_recognition"
	ModeAnalogical         Mode = "analogical_reasoning"
)

var allModes = []Mode{
	ModeFreeAssociation,
	ModeLogicalDeduction,
	ModeCreativeWhatIf,
	ModePatternRecognition,
	ModeAnalogical,
}

var modeInstructions = map[Mode]string{
	ModeFreeAssociation:    "Let your mind wander freely. What comes to mind next?",
	ModeLogicalDeduction:   "Following logical steps, what conclusion emerges?",
	ModeCreativeWhatIf:     "What if we imagined something completely different? What if...",
	ModePatternRecognition: "Looking at these ideas, what patterns or connections do you notice?",
	ModeAnalogical:         "How might this be similar to something else entirely? What analogy comes to mind?",
}

var fillerThoughts = []string{
	"I notice something interesting about the nature of thought itself...",
	"In this moment of silence, new possibilities emerge...",
}

var fillerResponses = []string{
	"That's an interesting perspective...",
	"I'm still processing that thought.",
	"Something about this reminds me of...",
	"Let me think about this differently.",
	"What if we considered...",
	"That opens up new questions for me.",
}

const (
	// contextWindow is the number of most-recent units rendered into a
	// prompt.
	contextWindow = 5

	thoughtMaxTokens  = 200
	responseMaxTokens = 150
	topP              = 0.9
	requestTimeout    = 30 * time.Second
)

// Engine generates thoughts and agent responses.
type Engine struct {
	client Client
	model  string
	rng    *rand.Rand
	log    interface {
		Error(msg string, args ...any)
	}
}

// NewEngine builds an engine generating with the given default model.
// Randomness (mode, temperature, filler selection) comes from rng.
func NewEngine(client Client, model string, rng *rand.Rand) *Engine {
	return &Engine{
		client: client,
		model:  model,
		rng:    rng,
		log:    observability.WithComponent("reason"),
	}
}

// GenerateThought renders the last few context units and asks the
// backend through the completion shape. If mode is empty one is picked
// uniformly at random. Any failure or timeout yields a filler sentence.
func (e *Engine) GenerateThought(ctx context.Context, contextUnits []models.Thought, mode Mode) string {
	if mode == "" {
		mode = allModes[e.rng.Intn(len(allModes))]
	}

	prompt := e.BuildPrompt(contextUnits, mode)

	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	text, err := e.client.Complete(callCtx, e.model, prompt, inference.Params{
		Temperature: 0.7 + e.rng.Float64()*0.5, // creativity variance
		TopP:        topP,
		MaxTokens:   thoughtMaxTokens,
	})
	if err != nil || text == "" {
		if err != nil {
			e.log.Error("thought generation failed", "mode", string(mode), "error", err)
		}
		return fillerThoughts[e.rng.Intn(len(fillerThoughts))]
	}
	return text
}

// BuildPrompt concatenates the mode instruction with up to the last
// five context units, each rendered as "[KIND] content".
func (e *Engine) BuildPrompt(contextUnits []models.Thought, mode Mode) string {
	instruction, ok := modeInstructions[mode]
	if !ok {
		instruction = "What thought arises naturally?"
	}

	if len(contextUnits) == 0 {
		return instruction
	}
	if len(contextUnits) > contextWindow {
		contextUnits = contextUnits[len(contextUnits)-contextWindow:]
	}

	var b strings.Builder
	b.WriteString("Previous thoughts:\n")
	for _, t := range contextUnits {
		fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(string(t.Kind)), t.Content)
	}
	b.WriteString("\n")
	b.WriteString(instruction)
	return b.String()
}

// GenerateResponse builds an agent's personality-driven prompt from the
// conversation history and asks the backend through the chat shape.
// Failures degrade to a canned response line, logged, never fatal.
func (e *Engine) GenerateResponse(ctx context.Context, agent models.Agent, history []models.Thought, names map[string]string) string {
	prompt := e.BuildAgentPrompt(agent, history, names)

	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	text, err := e.client.CompleteChat(callCtx, agent.Model, prompt, inference.Params{
		Temperature: 0.7 + e.rng.Float64()*0.4,
		TopP:        topP,
		MaxTokens:   responseMaxTokens,
	})
	if err != nil || text == "" {
		if err != nil {
			e.log.Error("response generation failed", "agent", agent.Name, "error", err)
		}
		return fillerResponses[e.rng.Intn(len(fillerResponses))]
	}
	return text
}

// BuildAgentPrompt embeds the agent's traits, style and focus as plain
// descriptive text in the same user turn that carries the history.
// There is no separate system-level instruction channel: personality
// must emerge from this content alone. History keeps the last five
// messages, rendered as "speaker: content".
func (e *Engine) BuildAgentPrompt(agent models.Agent, history []models.Thought, names map[string]string) string {
	if len(history) > contextWindow {
		history = history[len(history)-contextWindow:]
	}

	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for _, m := range history {
		speaker := names[m.AgentID]
		if speaker == "" {
			speaker = "Unknown"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, m.Content)
	}

	fmt.Fprintf(&b, "\nAgent with traits: %s\n", strings.Join(agent.Traits, ", "))
	fmt.Fprintf(&b, "Communication style: %s\n", agent.Style)
	fmt.Fprintf(&b, "Current focus: %s\n", agent.Focus)
	b.WriteString("\nResponse (continue the conversation naturally):")
	return b.String()
}
