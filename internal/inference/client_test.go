package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestClientInitialization tests client creation with default and custom config
func TestClientInitialization(t *testing.T) {
	client := NewClient(nil)
	if client == nil {
		t.Fatal("Expected client to be created with default config")
	}
	if client.config.BackendURL != "http://localhost:11434" {
		t.Errorf("Expected default URL, got %s", client.config.BackendURL)
	}

	custom := &Config{
		BackendURL: "http://custom:11434",
		Timeout:    10 * time.Second,
	}
	client = NewClient(custom)
	if client.config.BackendURL != "http://custom:11434" {
		t.Errorf("Expected custom URL, got %s", client.config.BackendURL)
	}
}

func TestCompleteGenerateShape(t *testing.T) {
	var captured generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "  a thought  ", Done: true})
	}))
	defer srv.Close()

	client := NewClient(&Config{BackendURL: srv.URL, Timeout: 5 * time.Second})

	got, err := client.Complete(context.Background(), "gemma2:2b", "seed prompt", Params{
		Temperature: 0.9, TopP: 0.9, MaxTokens: 200,
	})
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if got != "a thought" {
		t.Errorf("response = %q, want trimmed text", got)
	}
	if captured.Model != "gemma2:2b" || captured.Prompt != "seed prompt" {
		t.Errorf("request not forwarded: %+v", captured)
	}
	if captured.Stream {
		t.Error("stream must be false for blocking calls")
	}
	if captured.Options["top_p"] != 0.9 {
		t.Errorf("top_p not forwarded: %v", captured.Options)
	}
}

func TestCompleteChatShape(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"a reply"}}]}`))
	}))
	defer srv.Close()

	client := NewClient(&Config{BackendURL: srv.URL, Timeout: 5 * time.Second})

	got, err := client.CompleteChat(context.Background(), "phi3:mini", "hello agents", Params{
		Temperature: 0.8, TopP: 0.9, MaxTokens: 150,
	})
	if err != nil {
		t.Fatalf("CompleteChat err: %v", err)
	}
	if got != "a reply" {
		t.Errorf("response = %q", got)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" {
		t.Errorf("chat shape must carry exactly one user-role message, got %+v", captured.Messages)
	}
	if captured.MaxTokens != 150 {
		t.Errorf("max_tokens = %d, want 150", captured.MaxTokens)
	}
}

func TestCompleteNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(&Config{BackendURL: srv.URL, Timeout: 5 * time.Second})
	if _, err := client.Complete(context.Background(), "m", "p", Params{}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"gemma2:2b"},{"name":"phi3:mini"}]}`))
	}))
	defer srv.Close()

	client := NewClient(&Config{BackendURL: srv.URL, Timeout: 5 * time.Second})
	names, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels err: %v", err)
	}
	if len(names) != 2 || names[0] != "gemma2:2b" {
		t.Errorf("models = %v", names)
	}
}
