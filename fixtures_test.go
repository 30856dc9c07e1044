package rancher

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmalette/pdf-rancher/core"
	"github.com/gmalette/pdf-rancher/reader"
	"github.com/gmalette/pdf-rancher/writer"
)

// makePDF writes a PDF named name under dir with the given number of
// pages. Each page carries a content stream with the marker
// "name-pN" (1-based), and rotations maps page index to a stored
// /Rotate value.
func makePDF(t *testing.T, dir, name string, pageCount int, rotations map[int]int) string {
	t.Helper()

	w := writer.NewWriter(1, 4)
	pagesRef := w.Alloc()

	// One shared font so exports exercise resource deduplication.
	fontRef := w.Add(core.Dict{
		"Type":     core.Name("Font"),
		"Subtype":  core.Name("Type1"),
		"BaseFont": core.Name("Helvetica"),
	})

	kids := make(core.Array, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		contentRef := w.Add(&core.Stream{
			Dict: core.Dict{},
			Raw:  []byte(fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s-p%d) Tj ET", name, i+1)),
		})
		pageDict := core.Dict{
			"Type":      core.Name("Page"),
			"Parent":    pagesRef,
			"MediaBox":  core.Array{core.Int(0), core.Int(0), core.Int(612), core.Int(792)},
			"Resources": core.Dict{"Font": core.Dict{"F1": fontRef}},
			"Contents":  contentRef,
		}
		if rot, ok := rotations[i]; ok {
			pageDict.Set("Rotate", core.Int(rot))
		}
		kids = append(kids, w.Add(pageDict))
	}
	w.Put(pagesRef, core.Dict{
		"Type":  core.Name("Pages"),
		"Count": core.Int(pageCount),
		"Kids":  kids,
	})
	w.SetRoot(w.Add(core.Dict{
		"Type":  core.Name("Catalog"),
		"Pages": pagesRef,
	}))

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = w.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return path
}

// pageMarkers reopens an exported file and returns the content marker of
// every page, in page order.
func pageMarkers(t *testing.T, path string) []string {
	t.Helper()

	r, err := reader.Open(path)
	require.NoError(t, err)
	defer r.Close()

	pageList, err := r.Pages()
	require.NoError(t, err)

	markers := make([]string, 0, len(pageList))
	for _, page := range pageList {
		contents, err := page.Contents()
		require.NoError(t, err)
		require.Len(t, contents, 1)
		data, err := contents[0].(*core.Stream).Decode()
		require.NoError(t, err)
		markers = append(markers, extractMarker(string(data)))
	}
	return markers
}

// extractMarker pulls the "(...)" literal out of a fixture content stream.
func extractMarker(content string) string {
	start := -1
	for i, c := range content {
		switch c {
		case '(':
			start = i + 1
		case ')':
			if start >= 0 {
				return content[start:i]
			}
		}
	}
	return ""
}

// importTwoDocs builds the canonical fixture pair (A with 3 pages, B
// with 2) and imports both into a fresh project.
func importTwoDocs(t *testing.T) (*Project, string, string) {
	t.Helper()
	dir := t.TempDir()
	pathA := makePDF(t, dir, "a.pdf", 3, nil)
	pathB := makePDF(t, dir, "b.pdf", 2, nil)

	p := NewProject()
	_, err := p.ImportFiles(pathA, pathB)
	require.NoError(t, err)
	return p, pathA, pathB
}
