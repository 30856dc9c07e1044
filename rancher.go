// Package rancher combines pages from multiple PDF documents into one.
//
// A [Project] holds loaded source documents and an ordered sequence of
// page entries. Entries can be reordered, disabled and rotated, each one
// tracked by a stable identifier that survives any amount of reshuffling.
// Export splices the enabled pages, in order, into a new PDF at the
// object-graph level: content streams, fonts and images are copied
// untouched, so the output keeps full vector fidelity.
//
//	p := rancher.NewProject()
//	if _, err := p.ImportFiles("a.pdf", "b.pdf"); err != nil { ... }
//	entries := p.Entries()
//	p.Rotate(entries[0].ID, 90)
//	p.ToggleEnabled(entries[2].ID)
//	if err := p.Export("combined.pdf"); err != nil { ... }
//
// Previews are JPEG thumbnails rendered through MuPDF, cached per
// (document, page, rotation), and never part of the exported output.
package rancher

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/gmalette/pdf-rancher/raster"
)

// PreviewImage is a rendered page preview ready for a UI: base64-encoded
// JPEG plus pixel dimensions.
type PreviewImage struct {
	Data   string
	Width  int
	Height int
}

// Preview renders the page behind one ordering entry at the given
// rotation delta and returns it encoded for display. Results come from
// the preview cache when available.
func (p *Project) Preview(id EntryID, rotation int) (*PreviewImage, error) {
	p.mu.Lock()
	entry := p.find(id)
	if entry == nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	path := p.docs[entry.DocIndex].Path
	pageIndex := entry.PageIndex
	p.mu.Unlock()

	thumb, err := p.renderer.Render(path, pageIndex, rotation)
	if err != nil {
		return nil, err
	}

	return &PreviewImage{
		Data:   base64.StdEncoding.EncodeToString(thumb.JPEG),
		Width:  thumb.Width,
		Height: thumb.Height,
	}, nil
}

// RenderPreviews renders thumbnails for every page of every loaded
// document, one document at a time with pages rendering in parallel,
// and stores them on the page metadata. Per-page failures (wrapping
// raster.ErrRenderFailed) are reported through the progress sink and
// leave that page without a preview; only context cancellation aborts
// the batch.
func (p *Project) RenderPreviews(ctx context.Context) error {
	snap := p.Snapshot()

	// Rotation delta per (doc, page) from the current entries.
	rotationFor := make(map[[2]int]int, len(snap.Entries))
	for _, entry := range snap.Entries {
		rotationFor[[2]int{entry.DocIndex, entry.PageIndex}] = entry.Rotation
	}

	for docIndex, doc := range snap.Documents {
		rotations := make([]int, len(doc.Pages))
		for pageIndex := range doc.Pages {
			rotations[pageIndex] = rotationFor[[2]int{docIndex, pageIndex}]
		}

		thumbs, err := p.renderer.RenderBatch(ctx, doc.Path, rotations,
			func(pageIndex int, thumb *raster.Thumbnail, err error) {
				p.progress.notify(Progress{
					Stage:     StagePreview,
					DocIndex:  docIndex,
					DocCount:  len(snap.Documents),
					PageIndex: pageIndex,
					PageCount: len(doc.Pages),
				})
			})
		if err != nil {
			return err
		}

		p.mu.Lock()
		for pageIndex, thumb := range thumbs {
			if thumb != nil {
				doc.Pages[pageIndex].Preview = thumb
			}
		}
		p.mu.Unlock()
	}
	return nil
}
