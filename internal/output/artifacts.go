// Package output writes human-readable artifacts for discoveries and
// finished sessions as markdown files under a configured directory.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/reverie-ai/reverie/internal/models"
)

// Manager writes artifacts under dir, creating it on first use.
type Manager struct {
	dir string
}

// NewManager returns a manager rooted at dir.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the artifact directory.
func (m *Manager) Dir() string { return m.dir }

// SaveGolden writes one discovery as its own markdown file, named by
// timestamp so a directory listing reads chronologically.
func (m *Manager) SaveGolden(g models.GoldenThought) error {
	name := fmt.Sprintf("golden_%s.md", g.Timestamp.Format("20060102_150405.000"))

	var b strings.Builder
	fmt.Fprintf(&b, "# Golden Thought\n\n")
	fmt.Fprintf(&b, "**Time:** %s\n\n", g.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "**Score:** %.2f\n\n", g.Score)
	if g.DiscoveryContext != "" {
		fmt.Fprintf(&b, "**Context:** %s\n\n", g.DiscoveryContext)
	}
	fmt.Fprintf(&b, "%s\n", g.Content)

	return m.write(name, b.String())
}

// SessionReport is the input to WriteSessionSummary.
type SessionReport struct {
	StartedAt time.Time
	EndedAt   time.Time
	Thoughts  []models.Thought
}

// WriteSessionSummary writes one markdown summary per finished
// session: duration, counts, average score and the top three thoughts
// by score.
func (m *Manager) WriteSessionSummary(r SessionReport) error {
	name := fmt.Sprintf("session_%s.md", r.StartedAt.Format("20060102_150405"))

	golden := 0
	var total float64
	for _, t := range r.Thoughts {
		total += t.Score
		if t.Kind == models.KindGoldStrike {
			golden++
		}
	}
	avg := 0.0
	if len(r.Thoughts) > 0 {
		avg = total / float64(len(r.Thoughts))
	}

	top := make([]models.Thought, len(r.Thoughts))
	copy(top, r.Thoughts)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Score > top[j].Score })
	if len(top) > 3 {
		top = top[:3]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Session Summary\n\n")
	fmt.Fprintf(&b, "**Started:** %s\n\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "**Duration:** %s\n\n", r.EndedAt.Sub(r.StartedAt).Round(time.Second))
	fmt.Fprintf(&b, "**Thoughts:** %d\n\n", len(r.Thoughts))
	fmt.Fprintf(&b, "**Golden:** %d\n\n", golden)
	fmt.Fprintf(&b, "**Average score:** %.2f\n\n", avg)
	if len(top) > 0 {
		fmt.Fprintf(&b, "## Top thoughts\n\n")
		for i, t := range top {
			fmt.Fprintf(&b, "%d. (%.2f) %s\n", i+1, t.Score, t.Content)
		}
	}

	return m.write(name, b.String())
}

func (m *Manager) write(name, content string) error {
	path := filepath.Join(m.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	return nil
}
