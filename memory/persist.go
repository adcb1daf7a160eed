package memory

import (
	"encoding/json"
	"errors"
	"os"
)

// Record is a minimal persisted view of a turn. Only text survives a
// restart; tool blocks are transient by design.
type Record struct {
	Role string `json:"role"`
	Text string `json:"text,omitempty"`
}

// Load reads a persisted transcript. A missing file is not an error.
func Load(path string) ([]Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var recs []Record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Save writes the transcript to path.
func Save(path string, recs []Record) error {
	b, err := json.MarshalIndent(recs, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Transcript extracts the persistable records from the conversation:
// user and assistant text turns only.
func (c *Conversation) Transcript() []Record {
	var recs []Record
	for _, t := range c.turns {
		switch t.Role {
		case RoleUser, RoleAssistant:
			if t.Text != "" {
				recs = append(recs, Record{Role: string(t.Role), Text: t.Text})
			}
		}
	}
	return recs
}

// Restore appends persisted records as plain turns.
func (c *Conversation) Restore(recs []Record) {
	for _, r := range recs {
		role := Role(r.Role)
		if role != RoleUser && role != RoleAssistant {
			continue
		}
		c.Append(role, r.Text)
	}
}
