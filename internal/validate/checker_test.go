package validate

import (
	"strings"
	"testing"

	"faustpilot/internal/bible"
	"faustpilot/internal/config"
)

func testBible(t *testing.T) *bible.Bible {
	t.Helper()
	b := bible.New()
	entries := []bible.Entry{
		{Name: "osc", Prefix: "os", Library: "oscillators.lib",
			Signature: "osc(freq) : _", Params: []bible.Param{{Name: "freq"}}, Outputs: 1},
		{Name: "sawtooth", Prefix: "os", Library: "oscillators.lib",
			Signature: "sawtooth(freq) : _", Params: []bible.Param{{Name: "freq"}}, Outputs: 1},
		{Name: "lowpass", Prefix: "fi", Library: "filters.lib",
			Signature: "_ : lowpass(N, fc) : _", Params: []bible.Param{{Name: "N"}, {Name: "fc"}}, Inputs: 1, Outputs: 1},
		{Name: "noise", Prefix: "no", Library: "noises.lib",
			Signature: "noise : _", Outputs: 1},
		{Name: "adsr", Prefix: "en", Library: "envelopes.lib",
			Signature: "gate : adsr(at, dt, sl, rt) : _",
			Params:    []bible.Param{{Name: "at"}, {Name: "dt"}, {Name: "sl"}, {Name: "rt"}}, Inputs: 1, Outputs: 1},
	}
	for _, e := range entries {
		if err := b.Add(e); err != nil {
			t.Fatalf("Add(%s): %v", e.Qualified(), err)
		}
	}
	return b
}

func newTestChecker(t *testing.T) *Checker {
	t.Helper()
	return NewChecker(testBible(t), config.ValidateConfig{MaxSuggestions: 3})
}

func codes(r *Report) []string {
	out := make([]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		out = append(out, d.Code)
	}
	return out
}

func hasCode(r *Report, code string) bool {
	for _, d := range r.Diagnostics {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestCheckCleanProgram(t *testing.T) {
	src := `import("stdfaust.lib");
freq = hslider("freq", 440, 50, 2000, 1);
process = os.osc(freq) * 0.5;
`
	r := newTestChecker(t).Check(src)
	if !r.Valid() {
		t.Fatalf("clean program reported: %v", r.Diagnostics)
	}
	if len(r.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", codes(r))
	}
}

func TestCheckMissingProcess(t *testing.T) {
	r := newTestChecker(t).Check(`import("stdfaust.lib");` + "\n" + `freq = 440;`)
	if !hasCode(r, CodeMissingProcess) {
		t.Fatalf("missing-process not reported: %v", codes(r))
	}
	// freq is also unused.
	if !hasCode(r, CodeUnusedDefinition) {
		t.Fatalf("unused-definition not reported: %v", codes(r))
	}
}

func TestCheckUnbalancedDelimiters(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{name: "unclosed_paren", src: `process = os.osc(440;` + "\n"},
		{name: "stray_close", src: `process = os.osc(440));` + "\n"},
		{name: "mismatched", src: `process = (os.osc(440)];` + "\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := `import("stdfaust.lib");` + "\n" + tc.src
			r := newTestChecker(t).Check(src)
			if !hasCode(r, CodeUnbalancedDelim) {
				t.Fatalf("unbalanced-delimiter not reported: %v", codes(r))
			}
		})
	}
}

func TestCheckMissingSemicolon(t *testing.T) {
	src := `import("stdfaust.lib");
process = os.osc(440)`
	r := newTestChecker(t).Check(src)
	if !hasCode(r, CodeMissingSemicolon) {
		t.Fatalf("missing-semicolon not reported: %v", codes(r))
	}
}

func TestCheckMissingSemicolonMidFile(t *testing.T) {
	src := `import("stdfaust.lib");
gain = 0.5
process = os.osc(440) * gain;`
	r := newTestChecker(t).Check(src)
	if !hasCode(r, CodeMissingSemicolon) {
		t.Fatalf("mid-file missing-semicolon not reported: %v", codes(r))
	}
	// The definition after the split must still be recognized, not
	// absorbed into the previous body.
	if hasCode(r, CodeMissingProcess) {
		t.Fatalf("process definition lost after split: %v", codes(r))
	}
	if hasCode(r, CodeUnknownFunction) || hasCode(r, CodeUnusedDefinition) {
		t.Fatalf("split produced spurious diagnostics: %v", codes(r))
	}
}

func TestCheckUnknownFunction(t *testing.T) {
	src := `import("stdfaust.lib");
process = os.oscs(440);`
	r := newTestChecker(t).Check(src)
	if !hasCode(r, CodeUnknownFunction) {
		t.Fatalf("unknown-function not reported: %v", codes(r))
	}
	for _, d := range r.Diagnostics {
		if d.Code == CodeUnknownFunction && !strings.Contains(d.Hint, "os.osc") {
			t.Fatalf("hint %q should suggest os.osc", d.Hint)
		}
	}
}

func TestCheckUnknownPrefix(t *testing.T) {
	src := `import("stdfaust.lib");
process = zz.osc(440);`
	r := newTestChecker(t).Check(src)
	if !hasCode(r, CodeUnknownFunction) {
		t.Fatalf("unknown prefix not reported: %v", codes(r))
	}
}

func TestCheckArityMismatch(t *testing.T) {
	cases := []struct {
		name    string
		src     string
		wantErr bool
	}{
		{name: "too_many", src: `process = os.osc(440, 2);`, wantErr: true},
		{name: "too_few", src: `process = en.adsr(0.01, 0.1);`, wantErr: true},
		{name: "exact", src: `process = os.osc(440);`, wantErr: false},
		{name: "point_free", src: `process = 440 : os.osc;`, wantErr: false},
		{name: "zero_arity_with_args", src: `process = no.noise(42);`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := `import("stdfaust.lib");` + "\n" + tc.src
			r := newTestChecker(t).Check(src)
			if got := hasCode(r, CodeArityMismatch); got != tc.wantErr {
				t.Fatalf("arity-mismatch reported=%v, want %v; diagnostics: %v", got, tc.wantErr, r.Diagnostics)
			}
		})
	}
}

func TestCheckArityHintShowsSignature(t *testing.T) {
	src := `import("stdfaust.lib");
process = fi.lowpass(3);`
	r := newTestChecker(t).Check(src)
	found := false
	for _, d := range r.Diagnostics {
		if d.Code == CodeArityMismatch {
			found = true
			if !strings.Contains(d.Hint, "lowpass(N, fc)") {
				t.Fatalf("hint %q should carry the usage signature", d.Hint)
			}
		}
	}
	if !found {
		t.Fatalf("arity-mismatch not reported: %v", codes(r))
	}
}

func TestCheckMissingImport(t *testing.T) {
	r := newTestChecker(t).Check(`process = os.osc(440);`)
	if !hasCode(r, CodeMissingImport) {
		t.Fatalf("missing-import not reported: %v", codes(r))
	}

	// Only one missing-import diagnostic even with several stdlib calls.
	r = newTestChecker(t).Check(`process = os.osc(440) + no.noise;`)
	count := 0
	for _, d := range r.Diagnostics {
		if d.Code == CodeMissingImport {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("missing-import reported %d times, want 1", count)
	}
}

func TestCheckDirectLibraryImport(t *testing.T) {
	src := `import("oscillators.lib");
process = osc(440);`
	r := newTestChecker(t).Check(src)
	if !r.Valid() {
		t.Fatalf("direct library import should allow bare names: %v", r.Diagnostics)
	}
	if hasCode(r, CodeUnqualifiedStdlib) {
		t.Fatalf("bare name with direct import must not warn: %v", codes(r))
	}
}

func TestCheckUnqualifiedStdlibWarning(t *testing.T) {
	src := `import("stdfaust.lib");
process = osc(440);`
	r := newTestChecker(t).Check(src)
	if !hasCode(r, CodeUnqualifiedStdlib) {
		t.Fatalf("unqualified-stdlib not reported: %v", codes(r))
	}
	// Single candidate: the arity still gets checked.
	src = `import("stdfaust.lib");
process = osc(440, 1);`
	r = newTestChecker(t).Check(src)
	if !hasCode(r, CodeArityMismatch) {
		t.Fatalf("arity through bare candidate not checked: %v", codes(r))
	}
}

func TestCheckUIElementArity(t *testing.T) {
	src := `import("stdfaust.lib");
gain = hslider("gain", 0.5, 0, 1);
process = os.osc(440) * gain;`
	r := newTestChecker(t).Check(src)
	if !hasCode(r, CodeArityMismatch) {
		t.Fatalf("hslider with 4 args must fail: %v", codes(r))
	}
}

func TestCheckEmptyDefinition(t *testing.T) {
	src := `import("stdfaust.lib");
g = ;
process = os.osc(440);`
	r := newTestChecker(t).Check(src)
	if !hasCode(r, CodeEmptyDefinition) {
		t.Fatalf("empty-definition not reported: %v", codes(r))
	}
}

func TestCheckWithBlockDefinitions(t *testing.T) {
	src := `import("stdfaust.lib");
process = voice with {
  f = hslider("freq", 440, 50, 2000, 1);
  voice = os.osc(f);
};`
	r := newTestChecker(t).Check(src)
	if !r.Valid() {
		t.Fatalf("with-block locals must resolve: %v", r.Diagnostics)
	}
}

func TestCheckIterationVariable(t *testing.T) {
	src := `import("stdfaust.lib");
process = par(i, 4, os.osc(110 * (i + 1))) :> _;`
	r := newTestChecker(t).Check(src)
	if !r.Valid() {
		t.Fatalf("par iteration variable must be local: %v", r.Diagnostics)
	}
}

func TestCheckDisabledRules(t *testing.T) {
	c := NewChecker(testBible(t), config.ValidateConfig{
		DisabledRules:  []string{CodeUnusedDefinition},
		MaxSuggestions: 3,
	})
	src := `import("stdfaust.lib");
dead = 1;
process = os.osc(440);`
	r := c.Check(src)
	if hasCode(r, CodeUnusedDefinition) {
		t.Fatalf("disabled rule still reported: %v", codes(r))
	}
}

func TestCheckNilBibleKeepsStructuralRules(t *testing.T) {
	c := NewChecker(nil, config.ValidateConfig{})
	r := c.Check(`foo = os.osc(440)`)
	if !hasCode(r, CodeMissingProcess) || !hasCode(r, CodeMissingSemicolon) {
		t.Fatalf("structural rules must run without a bible: %v", codes(r))
	}
	if hasCode(r, CodeUnknownFunction) {
		t.Fatalf("lookup rules must be off without a bible: %v", codes(r))
	}
}

func TestReportOrdering(t *testing.T) {
	src := "process = os.osc(440, 2);\nbad = ;\n"
	r := newTestChecker(t).Check(src)
	for i := 1; i < len(r.Diagnostics); i++ {
		prev, cur := r.Diagnostics[i-1], r.Diagnostics[i]
		pl, cl := prev.Line, cur.Line
		if pl == 0 {
			pl = 1 << 30
		}
		if cl == 0 {
			cl = 1 << 30
		}
		if pl > cl {
			t.Fatalf("diagnostics out of order: %v", r.Diagnostics)
		}
	}
}

func TestSeverityString(t *testing.T) {
	if SeverityError.String() != "error" || SeverityWarning.String() != "warning" || SeverityInfo.String() != "info" {
		t.Fatal("severity strings wrong")
	}
}
