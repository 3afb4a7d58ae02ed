package assist

import (
	"strings"
)

// ExtractCode pulls the FAUST program out of a model reply. It prefers the
// first fenced code block (any info string); a reply with no fence is
// returned whole when it looks like code, empty otherwise.
func ExtractCode(reply string) string {
	if code, ok := firstFence(reply); ok {
		return strings.TrimSpace(code)
	}

	trimmed := strings.TrimSpace(reply)
	if looksLikeFaust(trimmed) {
		return trimmed
	}
	return ""
}

func firstFence(s string) (string, bool) {
	lines := strings.Split(s, "\n")
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			start = i
			break
		}
	}
	if start == -1 {
		return "", false
	}
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "```" {
			return strings.Join(lines[start+1:i], "\n"), true
		}
	}
	// Unterminated fence: take everything after the opening line.
	return strings.Join(lines[start+1:], "\n"), true
}

// looksLikeFaust is the no-fence heuristic: the reply must contain a
// definition and end-of-statement punctuation to count as code.
func looksLikeFaust(s string) bool {
	return strings.Contains(s, "=") && strings.Contains(s, ";") &&
		(strings.Contains(s, "process") || strings.Contains(s, "import("))
}
