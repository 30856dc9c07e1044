package rancher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gmalette/pdf-rancher/core"
	"github.com/gmalette/pdf-rancher/pages"
	"github.com/gmalette/pdf-rancher/reader"
	"github.com/gmalette/pdf-rancher/writer"
)

// Export assembles the enabled entries, in their current order, into a
// new PDF at destPath. Pages are copied at the object-graph level, so
// content streams, fonts and images move over untouched; only the
// page's /Rotate changes, to the sum of the stored rotation and the
// user-applied delta.
//
// The output is written to a temporary file next to the destination and
// renamed into place on success, so a failed export leaves nothing
// behind. One export runs at a time; a second request while one is in
// flight fails with ErrExportBusy.
func (p *Project) Export(destPath string) error {
	p.mu.Lock()
	if p.exporting {
		p.mu.Unlock()
		return ErrExportBusy
	}
	p.exporting = true
	snap := p.snapshotLocked()
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.exporting = false
		p.mu.Unlock()
	}()

	err := p.export(snap, destPath)
	if err != nil {
		p.log.Error("export failed", "dest", destPath, "error", err)
		return err
	}
	p.log.Info("export complete", "dest", destPath)
	return nil
}

func (p *Project) export(snap Snapshot, destPath string) error {
	// Callers usually pre-filter, but the enabled flag is enforced here
	// regardless.
	enabled := make([]OrderingEntry, 0, len(snap.Entries))
	for _, entry := range snap.Entries {
		if entry.Enabled {
			enabled = append(enabled, entry)
		}
	}
	if len(enabled) == 0 {
		return ErrEmptyExport
	}

	// Re-open every referenced source. Documents are read fresh at
	// export time so edits to the project since load cannot matter, and
	// a vanished file surfaces here as ErrMissingSource.
	needed := make(map[int]bool)
	for _, entry := range enabled {
		needed[entry.DocIndex] = true
	}

	readers := make(map[int]*reader.Reader, len(needed))
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()
	for docIndex := range needed {
		if docIndex < 0 || docIndex >= len(snap.Documents) {
			return fmt.Errorf("%w: entry references document %d of %d", ErrMissingSource, docIndex, len(snap.Documents))
		}
		path := snap.Documents[docIndex].Path
		r, err := reader.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrMissingSource, path)
			}
			return fmt.Errorf("%w: %s: %v", ErrMissingSource, path, err)
		}
		readers[docIndex] = r
	}

	// The output version is the newest among the sources, no older
	// than 1.4.
	version := reader.PDFVersion{Major: 1, Minor: 4}
	for _, r := range readers {
		if version.Less(r.Version()) {
			version = r.Version()
		}
	}

	w := writer.NewWriter(version.Major, version.Minor)
	pagesRef := w.Alloc()

	// One copier per source document: objects shared between pages of
	// the same source are copied once per export.
	copiers := make(map[int]*writer.Copier, len(readers))
	for docIndex, r := range readers {
		copiers[docIndex] = writer.NewCopier(w, r)
	}

	kids := make(core.Array, 0, len(enabled))
	for i, entry := range enabled {
		pageRef, err := copyPage(w, copiers[entry.DocIndex], readers[entry.DocIndex], entry, pagesRef)
		if err != nil {
			return fmt.Errorf("entry %d (%s page %d): %w",
				entry.ID, snap.Documents[entry.DocIndex].Path, entry.PageIndex, err)
		}
		kids = append(kids, pageRef)
		p.progress.notify(Progress{
			Stage:     StageExport,
			DocIndex:  entry.DocIndex,
			DocCount:  len(snap.Documents),
			PageIndex: i,
			PageCount: len(enabled),
		})
	}

	w.Put(pagesRef, core.Dict{
		"Type":  core.Name("Pages"),
		"Count": core.Int(len(kids)),
		"Kids":  kids,
	})
	w.SetRoot(w.Add(core.Dict{
		"Type":  core.Name("Catalog"),
		"Pages": pagesRef,
	}))
	w.SetInfo(w.Add(core.Dict{
		"Producer": core.String("pdf-rancher"),
	}))

	return writeAtomic(w, destPath)
}

// copyPage copies one source page into the output document and returns
// the destination page reference.
func copyPage(w *writer.Writer, copier *writer.Copier, r *reader.Reader, entry OrderingEntry, parent core.IndirectRef) (core.IndirectRef, error) {
	page, err := r.GetPage(entry.PageIndex)
	if err != nil {
		return core.IndirectRef{}, err
	}

	dict, err := page.MaterializedDict()
	if err != nil {
		return core.IndirectRef{}, err
	}
	// Annotations reference view state of the source document and are
	// not carried into the combined output.
	dict.Delete("Annots")

	copied, err := copier.Copy(dict)
	if err != nil {
		return core.IndirectRef{}, err
	}

	pageDict := copied.(core.Dict)
	pageDict.Set("Parent", parent)

	effective := pages.NormalizeRotation(page.Rotate() + entry.Rotation)
	if effective == 0 {
		pageDict.Delete("Rotate")
	} else {
		pageDict.Set("Rotate", core.Int(effective))
	}

	return w.Add(pageDict), nil
}

// writeAtomic serializes the document to a temporary file in the
// destination directory and renames it into place.
func writeAtomic(w *writer.Writer, destPath string) error {
	dir := filepath.Dir(destPath)
	tmp, err := os.CreateTemp(dir, ".rancher-export-*.pdf")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	tmpPath := tmp.Name()

	cleanup := func(cause error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", ErrWriteFailed, cause)
	}

	if _, err := w.WriteTo(tmp); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}
