package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"faustpilot/internal/config"
)

func chatServer(t *testing.T, reply string, inspect func(ollamaChatRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("stream must be false")
		}
		if inspect != nil {
			inspect(req)
		}
		var resp ollamaChatResponse
		resp.Message.Role = "assistant"
		resp.Message.Content = reply
		resp.Done = true
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestOllamaCompleteWithSystem(t *testing.T) {
	var got ollamaChatRequest
	srv := chatServer(t, "process = os.osc(440);", func(req ollamaChatRequest) { got = req })
	defer srv.Close()

	client := NewOllamaClient(OllamaConfig{Endpoint: srv.URL, Model: "test-model", Temperature: 0.2})
	out, err := client.CompleteWithSystem(context.Background(), "You write FAUST.", "a sine")
	if err != nil {
		t.Fatalf("CompleteWithSystem: %v", err)
	}
	if out != "process = os.osc(440);" {
		t.Fatalf("completion = %q", out)
	}
	if got.Model != "test-model" {
		t.Fatalf("model = %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if got.Options.Temperature != 0.2 {
		t.Fatalf("temperature = %f", got.Options.Temperature)
	}
}

func TestOllamaChatMultiTurn(t *testing.T) {
	var got ollamaChatRequest
	srv := chatServer(t, "fixed", func(req ollamaChatRequest) { got = req })
	defer srv.Close()

	client := NewOllamaClient(OllamaConfig{Endpoint: srv.URL})
	msgs := []Message{
		{Role: "user", Content: "a sine"},
		{Role: "assistant", Content: "process = osc(440);"},
		{Role: "user", Content: "osc is undefined, qualify it"},
	}
	if _, err := client.Chat(context.Background(), "system", msgs); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(got.Messages) != 4 {
		t.Fatalf("got %d messages, want 4 (system + 3 turns)", len(got.Messages))
	}
	if got.Messages[2].Role != "assistant" {
		t.Fatalf("messages[2].Role = %q", got.Messages[2].Role)
	}
}

func TestOllamaNoSystemPromptOmitted(t *testing.T) {
	var got ollamaChatRequest
	srv := chatServer(t, "ok", func(req ollamaChatRequest) { got = req })
	defer srv.Close()

	client := NewOllamaClient(OllamaConfig{Endpoint: srv.URL})
	if _, err := client.Complete(context.Background(), "hi"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v, want a single user turn", got.Messages)
	}
}

func TestOllamaServerErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewOllamaClient(OllamaConfig{Endpoint: srv.URL})
	if _, err := client.Complete(context.Background(), "hi"); err == nil {
		t.Fatal("server error must propagate")
	}
}

func TestOllamaContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewOllamaClient(OllamaConfig{Endpoint: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := client.Complete(ctx, "hi"); err == nil {
		t.Fatal("cancelled context must error")
	}
}

func TestNewFactory(t *testing.T) {
	client, err := New(config.LLMConfig{Provider: "ollama", OllamaModel: "m"})
	if err != nil {
		t.Fatalf("New(ollama): %v", err)
	}
	if client.Name() != "ollama:m" {
		t.Fatalf("name = %q", client.Name())
	}

	if _, err := New(config.LLMConfig{Provider: "openai"}); err == nil {
		t.Fatal("unknown provider must error")
	}

	if _, err := New(config.LLMConfig{Provider: "gemini"}); err == nil {
		t.Fatal("gemini without API key must error")
	}
}
