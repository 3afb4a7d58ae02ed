// Package assist runs the generate/validate/retry loop: prompt the model
// for FAUST code, check the result, and feed diagnostics back until the
// code passes or attempts run out.
package assist

import (
	"fmt"
	"strings"

	"faustpilot/internal/catalog"
	"faustpilot/internal/store"
	"faustpilot/internal/validate"
)

const systemPromptBase = `You are an expert FAUST (Functional AUdio STream) programmer.
Write complete, compilable FAUST programs.

Rules:
- Always start with import("stdfaust.lib"); and use qualified names (os.osc, fi.lowpass, no.noise, en.adsr).
- Every program must define process, the mandatory entry point.
- Every definition ends with a semicolon.
- Use the composition operators correctly: ':' sequential, ',' parallel, '<:' split, ':>' merge, '~' recursive.
- UI primitives take fixed arguments: hslider("name", init, min, max, step), button("name").
- Reply with exactly one fenced code block containing only the FAUST program. No prose outside the block.`

// buildSystemPrompt appends retrieved documentation sections to the base
// instructions so the model grounds its code in the real stdlib.
func buildSystemPrompt(chunks []store.ScoredChunk) string {
	if len(chunks) == 0 {
		return systemPromptBase
	}

	var sb strings.Builder
	sb.WriteString(systemPromptBase)
	sb.WriteString("\n\nRelevant library documentation:\n")
	for _, sc := range chunks {
		sb.WriteString("\n## ")
		sb.WriteString(sc.Chunk.Library)
		if sc.Chunk.Heading != "" {
			sb.WriteString(" — ")
			sb.WriteString(sc.Chunk.Heading)
		}
		sb.WriteString("\n")
		sb.WriteString(sc.Chunk.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// buildCorrectionPrompt turns a failed attempt's diagnostics into the next
// user turn. Compiler translations, when present, are appended with their
// fixes.
func buildCorrectionPrompt(report *validate.Report, translations []catalog.Translation) string {
	var sb strings.Builder
	sb.WriteString("The code you produced has problems. Fix all of them and reply with the corrected program in a single code block.\n")

	if report != nil {
		for _, d := range report.Diagnostics {
			if d.Severity != validate.SeverityError && d.Severity != validate.SeverityWarning {
				continue
			}
			fmt.Fprintf(&sb, "- %s\n", d.String())
		}
	}
	for _, tr := range translations {
		fmt.Fprintf(&sb, "- compiler: %s", tr.Summary)
		if tr.Fix != "" {
			fmt.Fprintf(&sb, " (fix: %s)", tr.Fix)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
