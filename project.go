package rancher

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gmalette/pdf-rancher/raster"
)

// EntryID is the stable identifier of an ordering entry. Identifiers are
// assigned from a monotonic counter at import time and never reused,
// which is what lets a UI track entries across reorders.
type EntryID int64

// PageMeta describes one physical page of a source document: its visual
// dimensions in PDF user-space units (width and height already swapped
// for pages whose stored /Rotate is 90 or 270) and the stored rotation
// itself. Preview is filled lazily by the rasterizer.
type PageMeta struct {
	Width    float64
	Height   float64
	Rotation int
	Preview  *raster.Thumbnail
}

// SourceDocument is one loaded PDF file. It is immutable after load
// apart from lazily-filled previews.
type SourceDocument struct {
	ID    string
	Path  string
	Pages []PageMeta
}

// OrderingEntry is one slot in the user-visible page sequence.
type OrderingEntry struct {
	ID        EntryID
	DocIndex  int
	PageIndex int
	Enabled   bool
	Rotation  int // user-applied delta, quarter turns
}

// Snapshot is a consistent copy of the project state, safe to read while
// mutations continue.
type Snapshot struct {
	Documents []*SourceDocument
	Entries   []OrderingEntry
}

// Project is the aggregate of loaded source documents and the ordered
// entry sequence. All mutations are serialized behind one mutex;
// readers take snapshots.
type Project struct {
	mu        sync.Mutex
	docs      []*SourceDocument
	entries   []OrderingEntry
	nextID    EntryID
	exporting bool

	renderer *raster.Renderer
	progress ProgressFunc
	log      *slog.Logger
}

// Option configures a Project.
type Option func(*Project)

// WithRenderer supplies a preview renderer. Without one the project
// creates a default renderer on first use.
func WithRenderer(r *raster.Renderer) Option {
	return func(p *Project) { p.renderer = r }
}

// WithProgress registers a progress sink for preview rendering and
// export.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Project) { p.progress = fn }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(p *Project) { p.log = log }
}

// NewProject creates an empty project.
func NewProject(opts ...Option) *Project {
	p := &Project{}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.renderer == nil {
		p.renderer = raster.NewRenderer(raster.Options{Logger: p.log})
	}
	return p
}

// Import appends the given documents to the project and creates one
// ordering entry per page, in document-then-page order, after all
// existing entries. Each new entry gets the next unused identifier and
// starts enabled with no rotation. The new entries are returned.
func (p *Project) Import(docs []*SourceDocument) []OrderingEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	baseDoc := len(p.docs)
	p.docs = append(p.docs, docs...)

	added := make([]OrderingEntry, 0)
	for di, doc := range docs {
		for pi := range doc.Pages {
			entry := OrderingEntry{
				ID:        p.nextID,
				DocIndex:  baseDoc + di,
				PageIndex: pi,
				Enabled:   true,
			}
			p.nextID++
			p.entries = append(p.entries, entry)
			added = append(added, entry)
		}
		p.log.Info("document imported",
			"path", doc.Path, "pages", len(doc.Pages))
	}
	return added
}

// ImportFiles loads the files at the given paths and imports them.
// Loading is all-or-nothing: if any file fails, the project is left
// unchanged and the error names the failing file.
func (p *Project) ImportFiles(paths ...string) ([]OrderingEntry, error) {
	docs, err := LoadDocuments(paths...)
	if err != nil {
		return nil, err
	}
	return p.Import(docs), nil
}

// Reorder replaces the entry sequence with the one given by ids, which
// must be a permutation of the current identifiers. On failure the
// ordering is unchanged.
func (p *Project) Reorder(ids []EntryID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(ids) != len(p.entries) {
		return fmt.Errorf("%w: got %d ids, have %d entries", ErrInvalidPermutation, len(ids), len(p.entries))
	}

	byID := make(map[EntryID]OrderingEntry, len(p.entries))
	for _, entry := range p.entries {
		byID[entry.ID] = entry
	}

	reordered := make([]OrderingEntry, 0, len(ids))
	for _, id := range ids {
		entry, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: id %d is duplicated or unknown", ErrInvalidPermutation, id)
		}
		delete(byID, id)
		reordered = append(reordered, entry)
	}

	p.entries = reordered
	return nil
}

// ToggleEnabled flips the enabled flag of one entry.
func (p *Project) ToggleEnabled(id EntryID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry := p.find(id)
	if entry == nil {
		return fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	entry.Enabled = !entry.Enabled
	return nil
}

// Rotate adds a rotation delta, in degrees, to one entry. The result is
// normalized to the quarter turns 0, 90, 180, 270; deltas that are not a
// multiple of 90 round to the nearest quarter turn first.
func (p *Project) Rotate(id EntryID, degrees int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry := p.find(id)
	if entry == nil {
		return fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	entry.Rotation = normalizeDegrees(entry.Rotation + degrees)
	return nil
}

// find returns the entry with the given id, or nil. Callers hold p.mu.
func (p *Project) find(id EntryID) *OrderingEntry {
	for i := range p.entries {
		if p.entries[i].ID == id {
			return &p.entries[i]
		}
	}
	return nil
}

// normalizeDegrees maps an arbitrary degree value to the nearest quarter
// turn in [0, 360).
func normalizeDegrees(degrees int) int {
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	return ((degrees + 45) / 90 % 4) * 90
}

// Clear resets the project to empty, dropping all documents, entries
// and cached previews. The identifier counter keeps running so cleared
// identifiers are never reborn.
func (p *Project) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, doc := range p.docs {
		p.renderer.Invalidate(doc.Path)
	}
	p.docs = nil
	p.entries = nil
}

// Snapshot returns a consistent copy of the documents and entries.
func (p *Project) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Project) snapshotLocked() Snapshot {
	docs := make([]*SourceDocument, len(p.docs))
	copy(docs, p.docs)
	entries := make([]OrderingEntry, len(p.entries))
	copy(entries, p.entries)
	return Snapshot{Documents: docs, Entries: entries}
}

// Entries returns a copy of the current ordering.
func (p *Project) Entries() []OrderingEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := make([]OrderingEntry, len(p.entries))
	copy(entries, p.entries)
	return entries
}

// Documents returns the loaded documents in load order.
func (p *Project) Documents() []*SourceDocument {
	p.mu.Lock()
	defer p.mu.Unlock()
	docs := make([]*SourceDocument, len(p.docs))
	copy(docs, p.docs)
	return docs
}
