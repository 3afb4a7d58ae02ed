package assist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"faustpilot/internal/catalog"
	"faustpilot/internal/config"
	"faustpilot/internal/llm"
	"faustpilot/internal/logging"
	"faustpilot/internal/retrieval"
	"faustpilot/internal/store"
	"faustpilot/internal/validate"
)

// ErrMaxAttemptsExceeded is returned when every attempt produced invalid
// code. The Result still carries the attempts so the caller can show the
// best effort.
var ErrMaxAttemptsExceeded = errors.New("maximum generation attempts exceeded")

// AttemptResult records one loop iteration for the caller.
type AttemptResult struct {
	Seq      int
	Code     string
	Report   *validate.Report
	Duration time.Duration
}

// Result is the outcome of a Generate call.
type Result struct {
	Session  string
	Code     string
	Valid    bool
	Attempts []AttemptResult
}

// Generator runs the generate/validate/retry loop.
type Generator struct {
	client    llm.Client
	checker   *validate.Checker
	catalog   *catalog.Catalog
	retriever *retrieval.DocRetriever
	store     *store.LocalStore
	cfg       config.GeneratorConfig
}

// NewGenerator wires a generator. retriever and store may be nil; the loop
// then runs without doc context and without persistence.
func NewGenerator(client llm.Client, checker *validate.Checker, cat *catalog.Catalog,
	retriever *retrieval.DocRetriever, s *store.LocalStore, cfg config.GeneratorConfig) *Generator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.ContextChunks <= 0 {
		cfg.ContextChunks = 6
	}
	return &Generator{
		client:    client,
		checker:   checker,
		catalog:   cat,
		retriever: retriever,
		store:     s,
		cfg:       cfg,
	}
}

// Generate asks the model for a FAUST program satisfying the request,
// validating each attempt and feeding diagnostics back. It returns the
// first valid program, or ErrMaxAttemptsExceeded with the best attempt
// after cfg.MaxAttempts failures.
func (g *Generator) Generate(ctx context.Context, request string) (*Result, error) {
	log := logging.For(logging.CategoryAssist)

	result := &Result{Session: uuid.NewString()}

	var chunks []store.ScoredChunk
	if g.retriever != nil {
		var err error
		chunks, err = g.retriever.Retrieve(ctx, request, g.cfg.ContextChunks)
		if err != nil {
			log.Warnw("doc retrieval failed, prompting without context", "error", err)
		}
	}
	system := buildSystemPrompt(chunks)

	msgs := []llm.Message{{Role: "user", Content: request}}

	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		start := time.Now()

		reply, err := g.client.Chat(ctx, system, msgs)
		if err != nil {
			return result, fmt.Errorf("attempt %d: %w", attempt, err)
		}

		code := ExtractCode(reply)
		report := g.validateAttempt(code)
		elapsed := time.Since(start)

		ar := AttemptResult{Seq: attempt, Code: code, Report: report, Duration: elapsed}
		result.Attempts = append(result.Attempts, ar)
		g.persistAttempt(ctx, result.Session, request, ar)

		errorCount := len(report.Errors())
		log.Infow("attempt validated",
			"session", result.Session,
			"attempt", attempt,
			"errors", errorCount,
			"duration", elapsed)

		if code != "" && report.Valid() {
			result.Code = code
			result.Valid = true
			return result, nil
		}

		// Keep the failing attempt in the conversation so the model sees
		// what it wrote, then demand corrections.
		msgs = append(msgs,
			llm.Message{Role: "assistant", Content: reply},
			llm.Message{Role: "user", Content: buildCorrectionPrompt(report, nil)},
		)
	}

	result.Code = bestAttempt(result.Attempts).Code
	return result, ErrMaxAttemptsExceeded
}

// bestAttempt picks the attempt with the fewest errors, preferring any
// attempt that produced code at all.
func bestAttempt(attempts []AttemptResult) AttemptResult {
	best := attempts[0]
	for _, a := range attempts[1:] {
		if a.Code != "" && (best.Code == "" || len(a.Report.Errors()) < len(best.Report.Errors())) {
			best = a
		}
	}
	return best
}

// Repair takes existing code plus raw compiler output and asks the model
// for a fixed version, using the error catalog to translate the output
// into actionable guidance.
func (g *Generator) Repair(ctx context.Context, code, compilerOutput string) (*Result, error) {
	log := logging.For(logging.CategoryAssist)

	var translations []catalog.Translation
	if g.catalog != nil {
		translations = g.catalog.Translate(compilerOutput)
	}

	result := &Result{Session: uuid.NewString()}

	request := "Fix this FAUST program so it compiles."
	msgs := []llm.Message{
		{Role: "user", Content: request},
		{Role: "assistant", Content: "```\n" + code + "\n```"},
		{Role: "user", Content: buildCorrectionPrompt(nil, translations)},
	}

	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		start := time.Now()

		reply, err := g.client.Chat(ctx, systemPromptBase, msgs)
		if err != nil {
			return result, fmt.Errorf("attempt %d: %w", attempt, err)
		}

		fixed := ExtractCode(reply)
		report := g.validateAttempt(fixed)
		elapsed := time.Since(start)

		ar := AttemptResult{Seq: attempt, Code: fixed, Report: report, Duration: elapsed}
		result.Attempts = append(result.Attempts, ar)
		g.persistAttempt(ctx, result.Session, request, ar)

		log.Infow("repair attempt validated",
			"session", result.Session,
			"attempt", attempt,
			"errors", len(report.Errors()))

		if fixed != "" && report.Valid() {
			result.Code = fixed
			result.Valid = true
			return result, nil
		}

		msgs = append(msgs,
			llm.Message{Role: "assistant", Content: reply},
			llm.Message{Role: "user", Content: buildCorrectionPrompt(report, nil)},
		)
	}

	result.Code = bestAttempt(result.Attempts).Code
	return result, ErrMaxAttemptsExceeded
}

func (g *Generator) validateAttempt(code string) *validate.Report {
	if code == "" {
		r := &validate.Report{}
		r.Diagnostics = append(r.Diagnostics, validate.Diagnostic{
			Severity: validate.SeverityError,
			Code:     validate.CodeLexical,
			Message:  "reply contained no code block",
		})
		return r
	}
	return g.checker.Check(code)
}

func (g *Generator) persistAttempt(ctx context.Context, session, request string, ar AttemptResult) {
	if g.store == nil {
		return
	}
	err := g.store.RecordAttempt(ctx, store.Attempt{
		ID:         uuid.NewString(),
		Session:    session,
		Seq:        ar.Seq,
		Request:    request,
		Code:       ar.Code,
		Valid:      ar.Report.Valid() && ar.Code != "",
		ErrorCount: len(ar.Report.Errors()),
		Duration:   ar.Duration,
	})
	if err != nil {
		logging.For(logging.CategoryAssist).Warnw("failed to persist attempt", "error", err)
	}
}
