package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/reverie-ai/reverie/internal/models"
)

func TestSaveGoldenWritesMarkdown(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	g := models.GoldenThought{
		ID:               "thought_1",
		Timestamp:        time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Content:          "connections between rivers and memory",
		Score:            0.85,
		DiscoveryContext: "dream session, thought 4",
	}
	if err := m.SaveGolden(g); err != nil {
		t.Fatalf("SaveGolden: %v", err)
	}

	entries, err := os.ReadDir(m.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d files, want 1", len(entries))
	}
	name := entries[0].Name()
	if !strings.HasPrefix(name, "golden_") || !strings.HasSuffix(name, ".md") {
		t.Errorf("unexpected artifact name %q", name)
	}

	data, err := os.ReadFile(filepath.Join(m.Dir(), name))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	body := string(data)
	for _, want := range []string{"# Golden Thought", "0.85", g.Content, g.DiscoveryContext} {
		if !strings.Contains(body, want) {
			t.Errorf("artifact missing %q:\n%s", want, body)
		}
	}
}

func TestWriteSessionSummaryPicksTopThree(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	report := SessionReport{
		StartedAt: start,
		EndedAt:   start.Add(90 * time.Second),
		Thoughts: []models.Thought{
			{ID: "a", Content: "low", Score: 0.1, Kind: models.KindSeed},
			{ID: "b", Content: "best", Score: 0.9, Kind: models.KindGoldStrike},
			{ID: "c", Content: "middle", Score: 0.5, Kind: models.KindReasoning},
			{ID: "d", Content: "second", Score: 0.7, Kind: models.KindGoldStrike},
			{ID: "e", Content: "least", Score: 0.0, Kind: models.KindReasoning},
		},
	}
	if err := m.WriteSessionSummary(report); err != nil {
		t.Fatalf("WriteSessionSummary: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(m.Dir(), "session_20240301_090000.md"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	body := string(data)

	for _, want := range []string{
		"**Thoughts:** 5",
		"**Golden:** 2",
		"**Duration:** 1m30s",
		"1. (0.90) best",
		"2. (0.70) second",
		"3. (0.50) middle",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("summary missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "least") {
		t.Errorf("summary should only keep the top three thoughts:\n%s", body)
	}
}

func TestNewManagerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deep", "outputs")
	if _, err := NewManager(dir); err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("output dir not created: %v", err)
	}
}
