package rancher

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gmalette/pdf-rancher/reader"
)

// LoadDocuments opens and validates the files at the given paths, in
// order, and returns one SourceDocument per file. The batch is
// all-or-nothing: the first failure aborts the load and nothing is
// returned, so a half-validated batch can never reach a project.
func LoadDocuments(paths ...string) ([]*SourceDocument, error) {
	docs := make([]*SourceDocument, 0, len(paths))
	for _, path := range paths {
		doc, err := loadDocument(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func loadDocument(path string) (*SourceDocument, error) {
	r, err := reader.Open(path)
	if err != nil {
		// Classify from the open error itself so a file that vanishes
		// between a caller's check and the open still maps correctly.
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
		}
		// Encrypted files and parse failures both count as invalid input.
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
	}
	defer r.Close()

	pageList, err := r.Pages()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
	}
	if len(pageList) == 0 {
		return nil, fmt.Errorf("%w: %s: document has no pages", ErrInvalidDocument, path)
	}

	metas := make([]PageMeta, 0, len(pageList))
	for i, page := range pageList {
		width, height, err := page.VisualSize()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: page %d: %v", ErrInvalidDocument, path, i, err)
		}
		metas = append(metas, PageMeta{
			Width:    width,
			Height:   height,
			Rotation: page.Rotate(),
		})
	}

	slog.Debug("document loaded",
		"path", path, "pages", len(metas), "version", r.Version().String())

	return &SourceDocument{
		ID:    uuid.NewString(),
		Path:  path,
		Pages: metas,
	}, nil
}
