// Package persona creates agent personalities: a sampled trait set, a
// conversation style and a focus area, fixed for the lifetime of a run.
package persona

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/reverie-ai/reverie/internal/models"
)

var traits = []string{
	"curious", "analytical", "creative", "methodical", "intuitive",
	"skeptical", "optimistic", "philosophical", "practical", "imaginative",
	"logical", "empathetic", "bold", "cautious", "innovative",
}

var styles = []string{
	"questioning", "storytelling", "technical", "metaphorical", "direct",
	"exploratory", "building_on_ideas", "challenging", "synthesizing", "divergent",
}

var focusAreas = []string{
	"patterns", "connections", "contradictions", "possibilities", "fundamentals",
	"applications", "implications", "origins", "futures", "relationships",
}

var namePrefixes = map[string]string{
	"curious": "Explorer", "analytical": "Analyzer", "creative": "Dreamer",
	"methodical": "Builder", "intuitive": "Seer", "skeptical": "Questioner",
	"optimistic": "Visionary", "philosophical": "Thinker", "practical": "Maker",
	"imaginative": "Weaver", "logical": "Reasoner", "empathetic": "Connector",
	"bold": "Pioneer", "cautious": "Guardian", "innovative": "Inventor",
}

// Generator builds agents with randomized personalities. Randomness and
// the clock are injected for reproducible tests.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

func New(rng *rand.Rand, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{rng: rng, now: now}
}

// Generate samples 2-4 distinct traits without replacement, one style
// and one focus, and derives the display name from the primary trait
// plus a suffix of the id.
func (g *Generator) Generate(id, model string) models.Agent {
	count := 2 + g.rng.Intn(3)
	sampled := g.sampleTraits(count)

	prefix, ok := namePrefixes[sampled[0]]
	if !ok {
		prefix = "Agent"
	}

	return models.Agent{
		ID:        id,
		Name:      fmt.Sprintf("%s-%s", prefix, idSuffix(id)),
		Traits:    sampled,
		Focus:     focusAreas[g.rng.Intn(len(focusAreas))],
		Style:     styles[g.rng.Intn(len(styles))],
		Model:     model,
		CreatedAt: g.now(),
	}
}

func (g *Generator) sampleTraits(n int) []string {
	perm := g.rng.Perm(len(traits))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = traits[perm[i]]
	}
	return out
}

func idSuffix(id string) string {
	if len(id) <= 3 {
		return id
	}
	return id[len(id)-3:]
}
