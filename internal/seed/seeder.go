// Package seed produces initial topics for autonomous reasoning and
// agent conversations.
package seed

import (
	"fmt"
	"math/rand"
	"time"
)

var abstractConcepts = []string{
	"consciousness", "infinity", "emergence", "patterns", "symmetry",
	"chaos", "order", "connection", "transformation", "paradox",
	"beauty", "truth", "existence", "meaning", "purpose", "time",
	"space", "energy", "information", "complexity", "simplicity",
}

var concreteConcepts = []string{
	"ocean", "mountain", "tree", "bird", "crystal", "river", "star",
	"flower", "stone", "wind", "fire", "ice", "light", "shadow",
	"music", "dance", "color", "texture", "sound", "silence",
}

var abstractQuestions = []string{
	"What if time moved backwards?",
	"How do patterns emerge from chaos?",
	"What connects all living things?",
	"Why do we find certain things beautiful?",
	"What is the nature of consciousness?",
	"How does complexity arise from simplicity?",
	"What would a perfect system look like?",
	"How do ideas spread and evolve?",
	"What makes something meaningful?",
	"How do we know what we know?",
}

var conversationSeeds = []string{
	"I've been thinking about the nature of time...",
	"What if consciousness is more like water than we think?",
	"There's something fascinating about how patterns emerge everywhere.",
	"I wonder about the connection between music and mathematics.",
	"The way plants grow reminds me of how ideas spread.",
	"Have you noticed how cities breathe like living organisms?",
	"The space between thoughts might be where creativity lives.",
	"I'm curious about what makes something beautiful versus useful.",
	"The relationship between order and chaos keeps puzzling me.",
	"Sometimes I think language shapes reality more than we realize.",
}

// Seeder generates reasoning seeds. Randomness and the clock are
// injected so sequences are reproducible under test.
type Seeder struct {
	rng *rand.Rand
	now func() time.Time
}

func New(rng *rand.Rand, now func() time.Time) *Seeder {
	if now == nil {
		now = time.Now
	}
	return &Seeder{rng: rng, now: now}
}

// Generate picks uniformly among three strategies: combining two
// distinct concepts, a canned open-ended question, or a time-based
// template rendered with the current clock.
func (s *Seeder) Generate() string {
	switch s.rng.Intn(3) {
	case 0:
		return s.combination()
	case 1:
		return abstractQuestions[s.rng.Intn(len(abstractQuestions))]
	default:
		return s.timeBased()
	}
}

// ConversationSeed returns a canned opening line for multi-agent
// conversations without an explicit topic.
func (s *Seeder) ConversationSeed() string {
	return conversationSeeds[s.rng.Intn(len(conversationSeeds))]
}

func (s *Seeder) combination() string {
	all := make([]string, 0, len(abstractConcepts)+len(concreteConcepts))
	all = append(all, abstractConcepts...)
	all = append(all, concreteConcepts...)

	first := all[s.rng.Intn(len(all))]
	second := all[s.rng.Intn(len(all))]
	for second == first {
		second = all[s.rng.Intn(len(all))]
	}
	return fmt.Sprintf("%s + %s", first, second)
}

func (s *Seeder) timeBased() string {
	now := s.now()
	templates := []string{
		fmt.Sprintf("It's %s on a %s. What might be happening right now?",
			now.Format("15:04"), now.Weekday()),
		fmt.Sprintf("In this moment at %s, what thoughts arise?", now.Format("15:04")),
		fmt.Sprintf("The time is %s. What does this precise moment contain?", now.Format("15:04:05")),
	}
	return templates[s.rng.Intn(len(templates))]
}
