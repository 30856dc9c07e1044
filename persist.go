package rancher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// projectState is the persisted form of a project: enough to rebuild it
// by reloading the documents. Previews are never persisted.
type projectState struct {
	Paths   []string     `json:"paths"`
	Entries []entryState `json:"entries"`
	NextID  int64        `json:"next_id"`
}

type entryState struct {
	ID        int64 `json:"id"`
	DocIndex  int   `json:"doc_index"`
	PageIndex int   `json:"page_index"`
	Enabled   bool  `json:"enabled"`
	Rotation  int   `json:"rotation"`
}

// SaveState writes the project state as JSON to path, atomically.
func (p *Project) SaveState(path string) error {
	p.mu.Lock()
	state := projectState{
		Paths:   make([]string, len(p.docs)),
		Entries: make([]entryState, len(p.entries)),
		NextID:  int64(p.nextID),
	}
	for i, doc := range p.docs {
		state.Paths[i] = doc.Path
	}
	for i, entry := range p.entries {
		state.Entries[i] = entryState{
			ID:        int64(entry.ID),
			DocIndex:  entry.DocIndex,
			PageIndex: entry.PageIndex,
			Enabled:   entry.Enabled,
			Rotation:  entry.Rotation,
		}
	}
	p.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".rancher-state-*")
	if err != nil {
		return fmt.Errorf("write project state: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write project state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write project state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write project state: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write project state: %w", err)
	}
	return nil
}

// LoadProject restores a project from a state file written by SaveState.
// Every referenced document is reloaded and every entry is validated
// against it; any failure leaves no partial project behind.
func LoadProject(path string, opts ...Option) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project state: %w", err)
	}

	var state projectState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode project state: %w", err)
	}

	docs, err := LoadDocuments(state.Paths...)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(state.Entries))
	entries := make([]OrderingEntry, 0, len(state.Entries))
	for _, e := range state.Entries {
		if e.DocIndex < 0 || e.DocIndex >= len(docs) {
			return nil, fmt.Errorf("%w: entry %d references document %d of %d",
				ErrInvalidDocument, e.ID, e.DocIndex, len(docs))
		}
		if e.PageIndex < 0 || e.PageIndex >= len(docs[e.DocIndex].Pages) {
			return nil, fmt.Errorf("%w: entry %d references page %d of %d in %s",
				ErrInvalidDocument, e.ID, e.PageIndex, len(docs[e.DocIndex].Pages), docs[e.DocIndex].Path)
		}
		if seen[e.ID] || e.ID >= state.NextID {
			return nil, fmt.Errorf("%w: entry id %d conflicts with the id counter",
				ErrInvalidDocument, e.ID)
		}
		seen[e.ID] = true
		entries = append(entries, OrderingEntry{
			ID:        EntryID(e.ID),
			DocIndex:  e.DocIndex,
			PageIndex: e.PageIndex,
			Enabled:   e.Enabled,
			Rotation:  normalizeDegrees(e.Rotation),
		})
	}

	p := NewProject(opts...)
	p.docs = docs
	p.entries = entries
	p.nextID = EntryID(state.NextID)
	return p, nil
}

// DefaultStatePath returns the conventional location of the persisted
// project state under the user's configuration directory.
func DefaultStatePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(dir, "pdf-rancher", "project.json"), nil
}
