package rancher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmalette/pdf-rancher/reader"
)

func TestExportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := makePDF(t, dir, "src.pdf", 3, nil)

	p := NewProject()
	_, err := p.ImportFiles(path)
	require.NoError(t, err)

	out := filepath.Join(dir, "out.pdf")
	require.NoError(t, p.Export(out))

	markers := pageMarkers(t, out)
	assert.Equal(t, []string{"src.pdf-p1", "src.pdf-p2", "src.pdf-p3"}, markers)
}

func TestExportScenarioDisabledEntry(t *testing.T) {
	p, _, _ := importTwoDocs(t)
	require.NoError(t, p.ToggleEnabled(2))

	out := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, p.Export(out))

	markers := pageMarkers(t, out)
	assert.Equal(t, []string{"a.pdf-p1", "a.pdf-p2", "b.pdf-p1", "b.pdf-p2"}, markers)
}

func TestExportScenarioReordered(t *testing.T) {
	p, _, _ := importTwoDocs(t)
	require.NoError(t, p.Reorder([]EntryID{4, 0, 1, 2, 3}))

	out := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, p.Export(out))

	markers := pageMarkers(t, out)
	assert.Equal(t, []string{"b.pdf-p2", "a.pdf-p1", "a.pdf-p2", "a.pdf-p3", "b.pdf-p1"}, markers)
}

func TestExportAppliesRotationDelta(t *testing.T) {
	p, _, _ := importTwoDocs(t)
	require.NoError(t, p.Rotate(0, 90))

	out := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, p.Export(out))

	r, err := reader.Open(out)
	require.NoError(t, err)
	defer r.Close()

	pageList, err := r.Pages()
	require.NoError(t, err)
	require.Len(t, pageList, 5)
	assert.Equal(t, 90, pageList[0].Rotate())
	assert.Equal(t, 0, pageList[1].Rotate())
}

func TestExportEffectiveRotationAddsSourceRotation(t *testing.T) {
	dir := t.TempDir()
	path := makePDF(t, dir, "rot.pdf", 1, map[int]int{0: 270})

	p := NewProject()
	_, err := p.ImportFiles(path)
	require.NoError(t, err)
	require.NoError(t, p.Rotate(0, 90))

	out := filepath.Join(dir, "out.pdf")
	require.NoError(t, p.Export(out))

	r, err := reader.Open(out)
	require.NoError(t, err)
	defer r.Close()

	page, err := r.GetPage(0)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Rotate(), "270 stored + 90 delta wraps to 0")
}

func TestExportEmpty(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.pdf")

	t.Run("no entries", func(t *testing.T) {
		p := NewProject()
		assert.ErrorIs(t, p.Export(out), ErrEmptyExport)
		assert.NoFileExists(t, out)
	})

	t.Run("all disabled", func(t *testing.T) {
		path := makePDF(t, dir, "src.pdf", 2, nil)
		p := NewProject()
		_, err := p.ImportFiles(path)
		require.NoError(t, err)
		require.NoError(t, p.ToggleEnabled(0))
		require.NoError(t, p.ToggleEnabled(1))

		assert.ErrorIs(t, p.Export(out), ErrEmptyExport)
		assert.NoFileExists(t, out)
	})
}

func TestExportMissingSource(t *testing.T) {
	dir := t.TempDir()
	path := makePDF(t, dir, "src.pdf", 2, nil)

	p := NewProject()
	_, err := p.ImportFiles(path)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	out := filepath.Join(dir, "out.pdf")
	err = p.Export(out)
	assert.ErrorIs(t, err, ErrMissingSource)
	assert.NoFileExists(t, out)

	// No stray temp files either.
	leftovers, err := filepath.Glob(filepath.Join(dir, ".rancher-export-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestExportBusy(t *testing.T) {
	p, _, _ := importTwoDocs(t)

	p.mu.Lock()
	p.exporting = true
	p.mu.Unlock()

	err := p.Export(filepath.Join(t.TempDir(), "out.pdf"))
	assert.ErrorIs(t, err, ErrExportBusy)
}

func TestExportOverwritesDestination(t *testing.T) {
	dir := t.TempDir()
	path := makePDF(t, dir, "src.pdf", 1, nil)
	out := filepath.Join(dir, "out.pdf")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))

	p := NewProject()
	_, err := p.ImportFiles(path)
	require.NoError(t, err)
	require.NoError(t, p.Export(out))

	markers := pageMarkers(t, out)
	assert.Equal(t, []string{"src.pdf-p1"}, markers)
}

func TestExportSharedResourcesDeduplicated(t *testing.T) {
	// All three pages of the source share one font object. The export
	// must copy it once, so the output object count stays small: with
	// per-page duplication the count would grow by two.
	dir := t.TempDir()
	path := makePDF(t, dir, "src.pdf", 3, nil)

	p := NewProject()
	_, err := p.ImportFiles(path)
	require.NoError(t, err)

	out := filepath.Join(dir, "out.pdf")
	require.NoError(t, p.Export(out))

	r, err := reader.Open(out)
	require.NoError(t, err)
	defer r.Close()

	// 3 pages + 3 content streams + 1 font + pages node + catalog +
	// info = 10 objects, /Size 11 with the free head entry.
	assert.Equal(t, 11, r.NumObjects())
}

func TestExportProgressReported(t *testing.T) {
	var events []Progress
	dir := t.TempDir()
	path := makePDF(t, dir, "src.pdf", 3, nil)

	p := NewProject(WithProgress(func(pr Progress) {
		events = append(events, pr)
	}))
	_, err := p.ImportFiles(path)
	require.NoError(t, err)

	require.NoError(t, p.Export(filepath.Join(dir, "out.pdf")))

	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, StageExport, ev.Stage)
		assert.Equal(t, i, ev.PageIndex)
		assert.Equal(t, 3, ev.PageCount)
	}
}

func TestExportedVersionFloor(t *testing.T) {
	dir := t.TempDir()
	path := makePDF(t, dir, "src.pdf", 1, nil)

	p := NewProject()
	_, err := p.ImportFiles(path)
	require.NoError(t, err)

	out := filepath.Join(dir, "out.pdf")
	require.NoError(t, p.Export(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data[:8]))
}
