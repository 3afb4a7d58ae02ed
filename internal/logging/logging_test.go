package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{in: "", wantErr: false},
		{in: "debug", wantErr: false},
		{in: "warning", wantErr: false},
		{in: "fatal", wantErr: true},
		{in: "verbose", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			_, err := parseLevel(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("parseLevel(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
		})
	}
}

func TestCategoryFiltering(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	mu.Lock()
	categories = map[string]bool{"bible": true, "store": false}
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		categories = nil
		mu.Unlock()
	})

	For(CategoryBible).Info("bible on")
	For(CategoryStore).Info("store off")
	For(CategoryLLM).Info("llm unlisted")

	got := logs.Len()
	if got != 2 {
		t.Fatalf("logged %d entries, want 2 (disabled category must be dropped)", got)
	}
	for _, entry := range logs.All() {
		if entry.Message == "store off" {
			t.Fatalf("disabled category leaked: %v", entry)
		}
	}
}

func TestForNeverNil(t *testing.T) {
	SetLogger(nil)
	if For(CategoryBoot) == nil {
		t.Fatal("For returned nil logger")
	}
}
