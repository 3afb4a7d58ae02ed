// Package catalog translates raw FAUST compiler errors into actionable
// suggestions. Patterns are ordered regexes over compiler output lines;
// the first match per line wins, and unmatched error lines pass through
// verbatim so information is never dropped.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"faustpilot/internal/logging"
)

//go:embed default_catalog.json
var defaultCatalogJSON []byte

// Pattern is one catalog rule as stored on disk.
type Pattern struct {
	// Code is a stable identifier for the error class.
	Code string `json:"code"`

	// Match is the regular expression applied to each output line.
	Match string `json:"match"`

	// Summary is the human explanation. $1, $2... splice captured groups.
	Summary string `json:"summary"`

	// Fix is the suggested correction, with the same group splicing.
	Fix string `json:"fix"`
}

type compiled struct {
	Pattern
	re *regexp.Regexp
}

// Translation is one translated output line.
type Translation struct {
	// Raw is the original compiler line.
	Raw string `json:"raw"`

	// Code is the matched pattern's code, or "unrecognized" for error
	// lines no pattern claimed.
	Code    string `json:"code"`
	Summary string `json:"summary"`
	Fix     string `json:"fix,omitempty"`
}

// Catalog holds the compiled patterns in priority order.
type Catalog struct {
	patterns []compiled
}

// CodeUnrecognized marks error lines that matched no pattern.
const CodeUnrecognized = "unrecognized"

// Default returns the embedded catalog. The embedded file is validated by
// tests, so a failure here is a build defect.
func Default() (*Catalog, error) {
	return parse(defaultCatalogJSON)
}

// Load reads a user catalog file and layers it over the defaults: user
// patterns are tried first so they can override built-in diagnoses.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	user, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	def, err := Default()
	if err != nil {
		return nil, err
	}
	user.patterns = append(user.patterns, def.patterns...)
	return user, nil
}

// parse validates every regex up front; the first bad one rejects the file.
func parse(data []byte) (*Catalog, error) {
	var patterns []Pattern
	if err := json.Unmarshal(data, &patterns); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{patterns: make([]compiled, 0, len(patterns))}
	for i, p := range patterns {
		if p.Code == "" {
			return nil, fmt.Errorf("pattern %d: missing code", i)
		}
		re, err := regexp.Compile(p.Match)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: bad regex: %w", p.Code, err)
		}
		c.patterns = append(c.patterns, compiled{Pattern: p, re: re})
	}
	return c, nil
}

// Len reports the number of patterns.
func (c *Catalog) Len() int { return len(c.patterns) }

// Translate runs the catalog over compiler output. Only lines that look
// like errors are translated; everything else (progress chatter) is
// dropped. Unmatched error lines come back with CodeUnrecognized.
func (c *Catalog) Translate(output string) []Translation {
	log := logging.For(logging.CategoryCatalog)

	var out []Translation
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		matched := false
		for _, p := range c.patterns {
			m := p.re.FindStringSubmatchIndex(line)
			if m == nil {
				continue
			}
			out = append(out, Translation{
				Raw:     line,
				Code:    p.Code,
				Summary: expand(p.re, p.Summary, line, m),
				Fix:     expand(p.re, p.Fix, line, m),
			})
			matched = true
			break
		}
		if !matched && looksLikeError(line) {
			out = append(out, Translation{Raw: line, Code: CodeUnrecognized, Summary: line})
		}
	}

	log.Debugw("translated compiler output", "lines", len(out))
	return out
}

// expand splices captured groups into a template using $1-style references.
func expand(re *regexp.Regexp, template, line string, m []int) string {
	if template == "" {
		return ""
	}
	return string(re.ExpandString(nil, template, line, m))
}

func looksLikeError(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "error") || strings.Contains(lower, "cannot") ||
		strings.Contains(lower, "undefined")
}
