package rancher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDocumentsNotFound(t *testing.T) {
	_, err := LoadDocuments(filepath.Join(t.TempDir(), "absent.pdf"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInvalidDocument,
		"a missing file is not-found, never invalid")
}

func TestLoadDocumentsVanishedFile(t *testing.T) {
	dir := t.TempDir()
	path := makePDF(t, dir, "gone.pdf", 1, nil)
	require.NoError(t, os.Remove(path))

	_, err := LoadDocuments(path)
	assert.ErrorIs(t, err, ErrNotFound,
		"a file gone by open time maps to not-found")
}

func TestLoadDocumentsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all, promise"), 0o644))

	_, err := LoadDocuments(path)
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Contains(t, err.Error(), path, "error must name the failing file")
}

func TestLoadDocumentsBatchAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	good := makePDF(t, dir, "good.pdf", 2, nil)
	bad := filepath.Join(dir, "bad.pdf")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o644))

	docs, err := LoadDocuments(good, bad)
	assert.Error(t, err)
	assert.Nil(t, docs, "a failed batch must return nothing")
}

func TestImportFilesFailureLeavesProjectUnchanged(t *testing.T) {
	p, _, _ := importTwoDocs(t)
	before := p.Entries()

	_, err := p.ImportFiles(filepath.Join(t.TempDir(), "absent.pdf"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before, p.Entries())
	assert.Len(t, p.Documents(), 2)
}

func TestLoadDocumentsOrder(t *testing.T) {
	dir := t.TempDir()
	pathB := makePDF(t, dir, "b.pdf", 1, nil)
	pathA := makePDF(t, dir, "a.pdf", 1, nil)

	docs, err := LoadDocuments(pathB, pathA)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, pathB, docs[0].Path, "documents keep the order given")
	assert.Equal(t, pathA, docs[1].Path)
}
