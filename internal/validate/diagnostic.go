// Package validate implements the pre-compile checker for FAUST source.
// It catches the mistakes LLM-generated DSP code makes most often (unknown
// stdlib functions, wrong argument counts, missing imports, unbalanced
// delimiters, no process definition) before the compiler ever runs.
//
// It deliberately does NOT type-check signal flow through composition
// operators; that stays the compiler's job.
package validate

import (
	"fmt"
	"sort"
)

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Diagnostic codes, stable across releases so configs and tests can name
// them.
const (
	CodeLexical           = "lexical"
	CodeUnbalancedDelim   = "unbalanced-delimiter"
	CodeMissingSemicolon  = "missing-semicolon"
	CodeMissingProcess    = "missing-process"
	CodeEmptyDefinition   = "empty-definition"
	CodeMissingImport     = "missing-import"
	CodeUnknownFunction   = "unknown-function"
	CodeArityMismatch     = "arity-mismatch"
	CodeUnqualifiedStdlib = "unqualified-stdlib"
	CodeUnusedDefinition  = "unused-definition"
)

// Diagnostic is one finding, positioned in the source (1-based, 0 when the
// finding has no precise location).
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Line     int      `json:"line,omitempty"`
	Col      int      `json:"col,omitempty"`
	Hint     string   `json:"hint,omitempty"`
}

func (d Diagnostic) String() string {
	pos := ""
	if d.Line > 0 {
		pos = fmt.Sprintf("%d:%d: ", d.Line, d.Col)
	}
	s := fmt.Sprintf("%s%s: %s [%s]", pos, d.Severity, d.Message, d.Code)
	if d.Hint != "" {
		s += "\n  hint: " + d.Hint
	}
	return s
}

// Report collects the diagnostics of one Check run.
type Report struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Valid reports whether the source passed with no errors. Warnings and
// infos do not fail a report.
func (r *Report) Valid() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Errors returns only the error-severity diagnostics.
func (r *Report) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Count returns totals per severity (errors, warnings, infos).
func (r *Report) Count() (errors, warnings, infos int) {
	for _, d := range r.Diagnostics {
		switch d.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		default:
			infos++
		}
	}
	return
}

// sortByPosition orders diagnostics by line, column, then code, keeping
// position-less findings last.
func (r *Report) sortByPosition() {
	sort.SliceStable(r.Diagnostics, func(i, j int) bool {
		a, b := r.Diagnostics[i], r.Diagnostics[j]
		al, bl := a.Line, b.Line
		if al == 0 {
			al = 1 << 30
		}
		if bl == 0 {
			bl = 1 << 30
		}
		if al != bl {
			return al < bl
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return a.Code < b.Code
	})
}

func (r *Report) add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}
