// Package bible builds and queries the FAUST standard-library lookup table.
// It parses the faustlibraries markdown documentation into Entry records
// ("the bible") that the validator uses for existence and argument-count
// checks, and persists them as faust_bible.json.
package bible

import (
	"fmt"
	"sort"
	"strings"
)

// Param is one documented function parameter.
type Param struct {
	Name string `json:"name"`
	Doc  string `json:"doc,omitempty"`
}

// Entry describes one documented stdlib function.
type Entry struct {
	// Name is the bare function name, e.g. "osc".
	Name string `json:"name"`

	// Prefix is the library environment, e.g. "os" for (os.)osc.
	Prefix string `json:"prefix"`

	// Library is the source library file, e.g. "oscillators.lib".
	Library string `json:"library"`

	// Signature is the first usage line, e.g. "osc(freq) : _".
	Signature string `json:"signature"`

	Params []Param `json:"params,omitempty"`

	// Inputs and Outputs are signal counts inferred from the usage line.
	// IOUnknown marks entries whose usage gave nothing to infer from.
	Inputs    int  `json:"inputs"`
	Outputs   int  `json:"outputs"`
	IOUnknown bool `json:"io_unknown,omitempty"`

	Description string `json:"description,omitempty"`
	Reference   string `json:"reference,omitempty"`
}

// Qualified returns the prefix-qualified name, e.g. "os.osc".
func (e Entry) Qualified() string {
	if e.Prefix == "" {
		return e.Name
	}
	return e.Prefix + "." + e.Name
}

// Arity is the number of declared parameters.
func (e Entry) Arity() int { return len(e.Params) }

// Bible is the indexed collection of entries.
type Bible struct {
	entries     []Entry
	byQualified map[string]int
	byBare      map[string][]int
}

// New returns an empty bible.
func New() *Bible {
	return &Bible{
		byQualified: make(map[string]int),
		byBare:      make(map[string][]int),
	}
}

// Add indexes an entry. Duplicate qualified names are rejected so one doc
// page cannot silently shadow another.
func (b *Bible) Add(e Entry) error {
	q := e.Qualified()
	if _, dup := b.byQualified[q]; dup {
		return fmt.Errorf("duplicate entry %s", q)
	}
	idx := len(b.entries)
	b.entries = append(b.entries, e)
	b.byQualified[q] = idx
	b.byBare[e.Name] = append(b.byBare[e.Name], idx)
	return nil
}

// Lookup resolves a qualified name ("os.osc"). The bool reports whether the
// entry exists.
func (b *Bible) Lookup(qualified string) (Entry, bool) {
	idx, found := b.byQualified[qualified]
	if !found {
		return Entry{}, false
	}
	return b.entries[idx], true
}

// Candidates returns every entry sharing a bare name. A bare "osc" may
// resolve to os.osc and more; callers decide how to report the ambiguity.
func (b *Bible) Candidates(bare string) []Entry {
	idxs := b.byBare[bare]
	out := make([]Entry, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, b.entries[i])
	}
	return out
}

// Entries returns all entries in insertion order.
func (b *Bible) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len reports the number of entries.
func (b *Bible) Len() int { return len(b.entries) }

// Prefixes returns the set of known library prefixes, sorted.
func (b *Bible) Prefixes() []string {
	seen := make(map[string]bool)
	for _, e := range b.entries {
		if e.Prefix != "" {
			seen[e.Prefix] = true
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// HasPrefix reports whether any entry uses the given library prefix.
func (b *Bible) HasPrefix(prefix string) bool {
	for _, e := range b.entries {
		if e.Prefix == prefix {
			return true
		}
	}
	return false
}

// Stats summarizes the bible for the CLI.
type Stats struct {
	Entries   int            `json:"entries"`
	Libraries int            `json:"libraries"`
	PerPrefix map[string]int `json:"per_prefix"`
}

// Summary computes Stats over the current entries.
func (b *Bible) Summary() Stats {
	libs := make(map[string]bool)
	per := make(map[string]int)
	for _, e := range b.entries {
		libs[e.Library] = true
		per[e.Prefix]++
	}
	return Stats{Entries: len(b.entries), Libraries: len(libs), PerPrefix: per}
}

// Suggest returns up to n qualified names closest to the given (possibly
// misspelled) name by edit distance. Used for "did you mean" hints.
func (b *Bible) Suggest(name string, n int) []string {
	if n <= 0 || len(b.entries) == 0 {
		return nil
	}

	type scored struct {
		name string
		dist int
	}
	var candidates []scored
	lower := strings.ToLower(name)
	for _, e := range b.entries {
		q := e.Qualified()
		d := levenshtein(lower, strings.ToLower(q))
		// A bare-name match against the entry name counts too; take the
		// better of the two distances.
		if bd := levenshtein(lower, strings.ToLower(e.Name)); bd < d {
			d = bd
		}
		candidates = append(candidates, scored{name: q, dist: d})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].name < candidates[j].name
	})

	// Anything further than half the query length away is noise.
	maxDist := len(name)/2 + 1
	out := make([]string, 0, n)
	for _, c := range candidates {
		if c.dist > maxDist {
			break
		}
		out = append(out, c.name)
		if len(out) == n {
			break
		}
	}
	return out
}

// levenshtein computes edit distance with the classic two-row method.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
