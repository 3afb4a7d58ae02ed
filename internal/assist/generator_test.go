package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"faustpilot/internal/bible"
	"faustpilot/internal/catalog"
	"faustpilot/internal/config"
	"faustpilot/internal/llm"
	"faustpilot/internal/validate"
)

func TestMain(m *testing.M) {
	// opencensus (a transitive dependency) starts a background worker at
	// package init; it is not spawned by the code under test.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

// scriptedClient replies with a fixed sequence and records what it saw.
type scriptedClient struct {
	replies []string
	calls   int
	lastMsg []llm.Message
	lastSys string
}

func (c *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.Chat(ctx, "", []llm.Message{{Role: "user", Content: prompt}})
}

func (c *scriptedClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	return c.Chat(ctx, system, []llm.Message{{Role: "user", Content: prompt}})
}

func (c *scriptedClient) Chat(_ context.Context, system string, msgs []llm.Message) (string, error) {
	c.lastSys = system
	c.lastMsg = msgs
	if c.calls >= len(c.replies) {
		return "", fmt.Errorf("script exhausted after %d calls", c.calls)
	}
	reply := c.replies[c.calls]
	c.calls++
	return reply, nil
}

func (c *scriptedClient) Name() string { return "scripted" }

func testChecker(t *testing.T) *validate.Checker {
	t.Helper()
	b := bible.New()
	entries := []bible.Entry{
		{Name: "osc", Prefix: "os", Library: "oscillators.lib", Signature: "osc(freq) : _",
			Params: []bible.Param{{Name: "freq"}}, Outputs: 1},
		{Name: "lowpass", Prefix: "fi", Library: "filters.lib", Signature: "_ : lowpass(N, fc) : _",
			Params: []bible.Param{{Name: "N"}, {Name: "fc"}}, Inputs: 1, Outputs: 1},
	}
	for _, e := range entries {
		if err := b.Add(e); err != nil {
			t.Fatalf("Add(%s): %v", e.Name, err)
		}
	}
	return validate.NewChecker(b, config.ValidateConfig{})
}

const validProgram = "import(\"stdfaust.lib\");\nprocess = os.osc(440);"

func fenced(code string) string {
	return "Here you go:\n```faust\n" + code + "\n```\n"
}

func TestGenerateFirstAttemptValid(t *testing.T) {
	client := &scriptedClient{replies: []string{fenced(validProgram)}}
	g := NewGenerator(client, testChecker(t), nil, nil, nil, config.GeneratorConfig{MaxAttempts: 3})

	result, err := g.Generate(context.Background(), "a 440 Hz sine")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !result.Valid {
		t.Fatal("result must be valid")
	}
	if result.Code != validProgram {
		t.Fatalf("code = %q", result.Code)
	}
	if len(result.Attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(result.Attempts))
	}
	if result.Session == "" {
		t.Fatal("session id missing")
	}
	if !strings.Contains(client.lastSys, "FAUST") {
		t.Fatal("system prompt missing")
	}
}

func TestGenerateRetriesOnInvalidCode(t *testing.T) {
	bad := "import(\"stdfaust.lib\");\nprocess = os.oscc(440);"
	client := &scriptedClient{replies: []string{fenced(bad), fenced(validProgram)}}
	g := NewGenerator(client, testChecker(t), nil, nil, nil, config.GeneratorConfig{MaxAttempts: 3})

	result, err := g.Generate(context.Background(), "a sine")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !result.Valid || len(result.Attempts) != 2 {
		t.Fatalf("valid=%v attempts=%d, want valid after 2", result.Valid, len(result.Attempts))
	}

	// The retry turn must carry the failing code and the diagnostics.
	if len(client.lastMsg) != 3 {
		t.Fatalf("retry conversation has %d messages, want 3", len(client.lastMsg))
	}
	if client.lastMsg[1].Role != "assistant" || !strings.Contains(client.lastMsg[1].Content, "oscc") {
		t.Fatalf("assistant turn = %+v", client.lastMsg[1])
	}
	if !strings.Contains(client.lastMsg[2].Content, "unknown-function") {
		t.Fatalf("correction turn missing diagnostic: %q", client.lastMsg[2].Content)
	}
}

func TestGenerateMaxAttemptsExceeded(t *testing.T) {
	bad := fenced("process = zz.nothing(1);")
	client := &scriptedClient{replies: []string{bad, bad, bad}}
	g := NewGenerator(client, testChecker(t), nil, nil, nil, config.GeneratorConfig{MaxAttempts: 3})

	result, err := g.Generate(context.Background(), "impossible")
	if !errors.Is(err, ErrMaxAttemptsExceeded) {
		t.Fatalf("err = %v, want ErrMaxAttemptsExceeded", err)
	}
	if result.Valid {
		t.Fatal("result must not be valid")
	}
	if len(result.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(result.Attempts))
	}
	if result.Code == "" {
		t.Fatal("best-effort code must be surfaced")
	}
	if client.calls != 3 {
		t.Fatalf("made %d LLM calls, want 3", client.calls)
	}
}

func TestGenerateNoCodeBlockCountsAsFailure(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"I cannot help with that.",
		fenced(validProgram),
	}}
	g := NewGenerator(client, testChecker(t), nil, nil, nil, config.GeneratorConfig{MaxAttempts: 3})

	result, err := g.Generate(context.Background(), "a sine")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !result.Valid || len(result.Attempts) != 2 {
		t.Fatalf("valid=%v attempts=%d", result.Valid, len(result.Attempts))
	}
	if result.Attempts[0].Code != "" {
		t.Fatalf("first attempt code = %q, want empty", result.Attempts[0].Code)
	}
}

func TestGenerateClientErrorPropagates(t *testing.T) {
	client := &scriptedClient{} // empty script errors immediately
	g := NewGenerator(client, testChecker(t), nil, nil, nil, config.GeneratorConfig{MaxAttempts: 3})

	if _, err := g.Generate(context.Background(), "a sine"); err == nil {
		t.Fatal("client error must propagate")
	}
}

func TestRepairUsesCatalogTranslations(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default: %v", err)
	}

	client := &scriptedClient{replies: []string{fenced(validProgram)}}
	g := NewGenerator(client, testChecker(t), cat, nil, nil, config.GeneratorConfig{MaxAttempts: 3})

	compilerOut := "ERROR : undefined symbol : BoxIdent[oscc]"
	result, err := g.Repair(context.Background(), "process = oscc(440);", compilerOut)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if !result.Valid {
		t.Fatal("repair must succeed")
	}
	// The correction turn must contain the translated error, not the raw dump.
	found := false
	for _, m := range client.lastMsg {
		if strings.Contains(m.Content, "oscc") && strings.Contains(m.Content, "compiler:") {
			found = true
		}
	}
	if !found {
		t.Fatalf("translated compiler error missing from conversation: %+v", client.lastMsg)
	}
}

func TestRepairMaxAttemptsSurfacesBestEffort(t *testing.T) {
	worse := fenced("process = zz.nothing(1) + yy.missing(2);")
	better := fenced("process = zz.nothing(1);")
	client := &scriptedClient{replies: []string{worse, better, worse}}
	g := NewGenerator(client, testChecker(t), nil, nil, nil, config.GeneratorConfig{MaxAttempts: 3})

	result, err := g.Repair(context.Background(), "process = oscc(440);", "ERROR : undefined symbol : BoxIdent[oscc]")
	if !errors.Is(err, ErrMaxAttemptsExceeded) {
		t.Fatalf("err = %v, want ErrMaxAttemptsExceeded", err)
	}
	if result.Code == "" {
		t.Fatal("best-effort code must be surfaced")
	}
	if !strings.Contains(result.Code, "zz.nothing(1);") || strings.Contains(result.Code, "yy.missing") {
		t.Fatalf("best effort = %q, want the fewest-errors attempt", result.Code)
	}
	if len(result.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(result.Attempts))
	}
}

func TestExtractCode(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  string
	}{
		{name: "faust_fence", reply: "```faust\nprocess = 0;\n```", want: "process = 0;"},
		{name: "dsp_fence", reply: "text\n```dsp\nprocess = 0;\n```\nmore", want: "process = 0;"},
		{name: "bare_fence", reply: "```\nprocess = 0;\n```", want: "process = 0;"},
		{name: "first_of_two", reply: "```\na = 1;\nprocess = a;\n```\n```\nb = 2;\n```", want: "a = 1;\nprocess = a;"},
		{name: "unterminated", reply: "```faust\nprocess = 0;", want: "process = 0;"},
		{name: "no_fence_code", reply: "import(\"stdfaust.lib\");\nprocess = os.osc(440);", want: "import(\"stdfaust.lib\");\nprocess = os.osc(440);"},
		{name: "no_fence_prose", reply: "Sorry, I can't do that.", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractCode(tc.reply); got != tc.want {
				t.Fatalf("ExtractCode = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildSystemPromptIncludesChunks(t *testing.T) {
	prompt := buildSystemPrompt(nil)
	if !strings.Contains(prompt, "process") {
		t.Fatal("base prompt missing rules")
	}
	if strings.Contains(prompt, "Relevant library documentation") {
		t.Fatal("empty chunks must not add a docs section")
	}
}
