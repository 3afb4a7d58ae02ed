package bible

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FormatVersion is bumped when the on-disk shape changes incompatibly.
const FormatVersion = 1

// envelope is the faust_bible.json shape: a versioned wrapper around the
// entry list. A flat name->signature map cannot represent ambiguous bare
// names, so the list is authoritative and maps are derived in memory.
type envelope struct {
	Version   int       `json:"version"`
	Generated time.Time `json:"generated"`
	Entries   []Entry   `json:"entries"`
}

// Save writes the bible to path, creating parent directories.
func (b *Bible) Save(path string) error {
	env := envelope{
		Version:   FormatVersion,
		Generated: time.Now().UTC(),
		Entries:   b.entries,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bible: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create bible dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a bible previously written by Save.
func Load(path string) (*Bible, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bible: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if env.Version != FormatVersion {
		return nil, fmt.Errorf("%s: unsupported bible version %d (want %d); rebuild with `faustpilot bible build`",
			path, env.Version, FormatVersion)
	}

	b := New()
	for _, e := range env.Entries {
		if err := b.Add(e); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return b, nil
}
