package newme

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Override pins a fixed greeting and extra context lines to a specific user,
// matched by user id or nickname. Used for hand-written welcomes that must
// not go through template selection.
type Override struct {
	UserID       string   `yaml:"user_id"`
	Nickname     string   `yaml:"nickname"`
	Greeting     string   `yaml:"greeting"`
	ContextLines []string `yaml:"context_lines"`
}

// Overrides is the loaded identity-override table.
type Overrides struct {
	entries []Override
}

type overridesFile struct {
	Overrides []Override `yaml:"overrides"`
}

// LoadOverrides reads the override table from a YAML file. An empty path
// yields an empty table.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return &Overrides{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading overrides: %w", err)
	}

	var file overridesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing overrides: %w", err)
	}

	for i, o := range file.Overrides {
		if o.UserID == "" && o.Nickname == "" {
			return nil, fmt.Errorf("override %d matches nobody: user_id or nickname required", i)
		}
	}

	slog.Info("greeting overrides loaded", "count", len(file.Overrides))
	return &Overrides{entries: file.Overrides}, nil
}

// Find returns the first override matching the user id or nickname, or nil.
func (o *Overrides) Find(userID, nickname string) *Override {
	if o == nil {
		return nil
	}
	for i := range o.entries {
		e := &o.entries[i]
		if e.UserID != "" && e.UserID == userID {
			return e
		}
		if e.Nickname != "" && nickname != "" && e.Nickname == nickname {
			return e
		}
	}
	return nil
}
