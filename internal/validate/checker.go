package validate

import (
	"fmt"
	"strings"

	"faustpilot/internal/bible"
	"faustpilot/internal/config"
	"faustpilot/internal/faust"
	"faustpilot/internal/logging"
)

// keywords never resolve through the bible and take free-form arguments.
var keywords = map[string]bool{
	"import": true, "declare": true, "with": true, "letrec": true,
	"environment": true, "library": true, "component": true,
	"ffunction": true, "fconstant": true, "fvariable": true,
	"waveform": true, "route": true, "soundfile": true, "case": true,
}

// primitives are built-in signal functions; presence is always fine and no
// argument-count check applies (they are mostly used point-free).
var primitives = map[string]bool{
	"sin": true, "cos": true, "tan": true, "asin": true, "acos": true,
	"atan": true, "atan2": true, "exp": true, "log": true, "log10": true,
	"pow": true, "sqrt": true, "abs": true, "min": true, "max": true,
	"fmod": true, "remainder": true, "floor": true, "ceil": true,
	"rint": true, "int": true, "float": true, "mem": true, "prefix": true,
	"select2": true, "select3": true, "attach": true, "rdtable": true,
	"rwtable": true, "xor": true,
}

// primArity is the fixed argument count of paren-applied primitives. UI
// elements with wrong slider argument counts are among the most common
// LLM mistakes.
var primArity = map[string]int{
	"button":   1,
	"checkbox": 1,
	"hslider":  5,
	"vslider":  5,
	"nentry":   5,
	"hgroup":   2,
	"vgroup":   2,
	"tgroup":   2,
	"par":      3,
	"seq":      3,
	"sum":      3,
	"prod":     3,
}

// Checker runs the pre-compile rules against FAUST source.
type Checker struct {
	bible          *bible.Bible
	disabled       map[string]bool
	maxSuggestions int
}

// NewChecker builds a checker over the given bible. A nil bible disables
// the lookup-based rules but keeps the structural ones.
func NewChecker(b *bible.Bible, cfg config.ValidateConfig) *Checker {
	disabled := make(map[string]bool, len(cfg.DisabledRules))
	for _, code := range cfg.DisabledRules {
		disabled[code] = true
	}
	maxSuggestions := cfg.MaxSuggestions
	if maxSuggestions <= 0 {
		maxSuggestions = 3
	}
	return &Checker{bible: b, disabled: disabled, maxSuggestions: maxSuggestions}
}

// Check validates one source text and returns the positioned report.
func (c *Checker) Check(src string) *Report {
	log := logging.For(logging.CategoryValidate)

	tokens := faust.Lex(src)
	report := &Report{}

	c.checkLexical(tokens, report)
	c.checkBalance(tokens, report)

	a := analyze(tokens)
	c.checkStatements(a, report)
	c.checkProcess(a, report)
	c.checkCalls(a, report)
	c.checkUnused(a, report)

	c.filterDisabled(report)
	report.sortByPosition()

	errs, warns, infos := report.Count()
	log.Debugw("check complete", "tokens", len(tokens), "errors", errs, "warnings", warns, "infos", infos)
	return report
}

func (c *Checker) checkLexical(tokens []faust.Token, r *Report) {
	for _, t := range tokens {
		if t.Kind == faust.KindIllegal {
			r.add(Diagnostic{
				Severity: SeverityError,
				Code:     CodeLexical,
				Message:  t.Text,
				Line:     t.Line,
				Col:      t.Col,
			})
		}
	}
}

func (c *Checker) checkBalance(tokens []faust.Token, r *Report) {
	var stack []faust.Token
	pairs := map[string]string{")": "(", "]": "[", "}": "{"}

	for _, t := range tokens {
		if t.Kind != faust.KindDelim {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			stack = append(stack, t)
		default:
			want := pairs[t.Text]
			if len(stack) == 0 || stack[len(stack)-1].Text != want {
				r.add(Diagnostic{
					Severity: SeverityError,
					Code:     CodeUnbalancedDelim,
					Message:  fmt.Sprintf("unmatched %q", t.Text),
					Line:     t.Line,
					Col:      t.Col,
				})
				continue
			}
			stack = stack[:len(stack)-1]
		}
	}

	for _, open := range stack {
		r.add(Diagnostic{
			Severity: SeverityError,
			Code:     CodeUnbalancedDelim,
			Message:  fmt.Sprintf("%q is never closed", open.Text),
			Line:     open.Line,
			Col:      open.Col,
		})
	}
}

func (c *Checker) checkStatements(a *analysis, r *Report) {
	if a.unterminated != nil {
		r.add(Diagnostic{
			Severity: SeverityError,
			Code:     CodeMissingSemicolon,
			Message:  fmt.Sprintf("definition of %q is not terminated by ';'", a.unterminated.Text),
			Line:     a.unterminated.Line,
			Col:      a.unterminated.Col,
		})
	}
	for _, tok := range a.missingSemis {
		r.add(Diagnostic{
			Severity: SeverityError,
			Code:     CodeMissingSemicolon,
			Message:  fmt.Sprintf("definition of %q is not terminated by ';'", tok.Text),
			Line:     tok.Line,
			Col:      tok.Col,
		})
	}

	for _, d := range a.defs {
		if d.bodyLen == 0 {
			r.add(Diagnostic{
				Severity: SeverityError,
				Code:     CodeEmptyDefinition,
				Message:  fmt.Sprintf("definition of %q has an empty body", d.name.Text),
				Line:     d.name.Line,
				Col:      d.name.Col,
			})
		}
	}
}

func (c *Checker) checkProcess(a *analysis, r *Report) {
	for _, d := range a.defs {
		if d.name.Text == "process" {
			return
		}
	}
	r.add(Diagnostic{
		Severity: SeverityError,
		Code:     CodeMissingProcess,
		Message:  "no `process` definition: every FAUST program needs one",
		Hint:     "add e.g. `process = os.osc(440);`",
	})
}

func (c *Checker) checkCalls(a *analysis, r *Report) {
	if c.bible == nil || c.bible.Len() == 0 {
		return
	}

	reportedImports := make(map[string]bool)
	for _, call := range a.calls {
		name := call.name.Text
		switch {
		case call.name.IsQualified():
			c.checkQualifiedCall(a, call, r, reportedImports)
		case a.locals[name] || keywords[name] || primitives[name]:
			// Locals and point-free primitives need no lookup.
		case primArity[name] > 0:
			if call.hasParens && call.args != primArity[name] {
				r.add(Diagnostic{
					Severity: SeverityError,
					Code:     CodeArityMismatch,
					Message:  fmt.Sprintf("%s takes %d arguments, got %d", name, primArity[name], call.args),
					Line:     call.name.Line,
					Col:      call.name.Col,
				})
			}
		default:
			c.checkBareCall(a, call, r, reportedImports)
		}
	}
}

func (c *Checker) checkQualifiedCall(a *analysis, call callSite, r *Report, reportedImports map[string]bool) {
	name := call.name.Text
	prefix, _, _ := strings.Cut(name, ".")

	// A local environment definition shadows library prefixes.
	if a.locals[prefix] {
		return
	}

	entry, found := c.bible.Lookup(name)
	if !found {
		if !c.bible.HasPrefix(prefix) {
			r.add(Diagnostic{
				Severity: SeverityError,
				Code:     CodeUnknownFunction,
				Message:  fmt.Sprintf("unknown library prefix %q in %s", prefix, name),
				Line:     call.name.Line,
				Col:      call.name.Col,
				Hint:     suggestHint(c.bible.Suggest(name, c.maxSuggestions)),
			})
			return
		}
		r.add(Diagnostic{
			Severity: SeverityError,
			Code:     CodeUnknownFunction,
			Message:  fmt.Sprintf("%s is not a documented function", name),
			Line:     call.name.Line,
			Col:      call.name.Col,
			Hint:     suggestHint(c.bible.Suggest(name, c.maxSuggestions)),
		})
		return
	}

	if !a.importsStdfaust() && !a.importsLibrary(entry.Library) && !reportedImports["stdfaust.lib"] {
		reportedImports["stdfaust.lib"] = true
		r.add(Diagnostic{
			Severity: SeverityError,
			Code:     CodeMissingImport,
			Message:  fmt.Sprintf("%s is used but no stdlib import is present", name),
			Line:     call.name.Line,
			Col:      call.name.Col,
			Hint:     `add import("stdfaust.lib"); at the top of the file`,
		})
	}

	c.checkArity(entry, call, r)
}

func (c *Checker) checkBareCall(a *analysis, call callSite, r *Report, reportedImports map[string]bool) {
	name := call.name.Text
	candidates := c.bible.Candidates(name)

	if len(candidates) == 0 {
		r.add(Diagnostic{
			Severity: SeverityError,
			Code:     CodeUnknownFunction,
			Message:  fmt.Sprintf("%q is not defined here and is not a documented function", name),
			Line:     call.name.Line,
			Col:      call.name.Col,
			Hint:     suggestHint(c.bible.Suggest(name, c.maxSuggestions)),
		})
		return
	}

	// Direct library import brings bare names into scope.
	for _, cand := range candidates {
		if a.importsLibrary(cand.Library) {
			c.checkArity(cand, call, r)
			return
		}
	}

	if !a.importsStdfaust() {
		if !reportedImports["stdfaust.lib"] {
			reportedImports["stdfaust.lib"] = true
			r.add(Diagnostic{
				Severity: SeverityError,
				Code:     CodeMissingImport,
				Message:  fmt.Sprintf("%q needs a stdlib import", name),
				Line:     call.name.Line,
				Col:      call.name.Col,
				Hint:     `add import("stdfaust.lib"); at the top of the file`,
			})
		}
		return
	}

	// With stdfaust.lib, stdlib functions live behind their prefix.
	quals := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		quals = append(quals, cand.Qualified())
	}
	r.add(Diagnostic{
		Severity: SeverityWarning,
		Code:     CodeUnqualifiedStdlib,
		Message:  fmt.Sprintf("%q is a stdlib function and needs its library prefix", name),
		Line:     call.name.Line,
		Col:      call.name.Col,
		Hint:     "use " + strings.Join(quals, " or "),
	})
	if len(candidates) == 1 {
		c.checkArity(candidates[0], call, r)
	}
}

func (c *Checker) checkArity(entry bible.Entry, call callSite, r *Report) {
	if !call.hasParens {
		return // point-free usage, arguments come from the signal graph
	}
	if call.args == entry.Arity() {
		return
	}
	r.add(Diagnostic{
		Severity: SeverityError,
		Code:     CodeArityMismatch,
		Message: fmt.Sprintf("%s takes %d argument(s), got %d",
			entry.Qualified(), entry.Arity(), call.args),
		Line: call.name.Line,
		Col:  call.name.Col,
		Hint: "usage: " + entry.Signature,
	})
}

func (c *Checker) checkUnused(a *analysis, r *Report) {
	refs := make(map[string]int)
	for _, call := range a.calls {
		refs[call.name.Text]++
	}

	for _, d := range a.defs {
		if d.name.Text == "process" {
			continue
		}
		if refs[d.name.Text] == 0 {
			r.add(Diagnostic{
				Severity: SeverityInfo,
				Code:     CodeUnusedDefinition,
				Message:  fmt.Sprintf("%q is defined but never used", d.name.Text),
				Line:     d.name.Line,
				Col:      d.name.Col,
			})
		}
	}
}

func (c *Checker) filterDisabled(r *Report) {
	if len(c.disabled) == 0 {
		return
	}
	kept := r.Diagnostics[:0]
	for _, d := range r.Diagnostics {
		if !c.disabled[d.Code] {
			kept = append(kept, d)
		}
	}
	r.Diagnostics = kept
}

func suggestHint(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return "did you mean " + strings.Join(names, ", ") + "?"
}
