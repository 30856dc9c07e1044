package rancher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportTwoDocuments(t *testing.T) {
	p, pathA, pathB := importTwoDocs(t)

	docs := p.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, pathA, docs[0].Path)
	assert.Equal(t, pathB, docs[1].Path)
	assert.Len(t, docs[0].Pages, 3)
	assert.Len(t, docs[1].Pages, 2)
	assert.NotEmpty(t, docs[0].ID)
	assert.NotEqual(t, docs[0].ID, docs[1].ID)

	entries := p.Entries()
	require.Len(t, entries, 5)
	for i, entry := range entries {
		assert.Equal(t, EntryID(i), entry.ID, "entry %d id", i)
		assert.True(t, entry.Enabled, "entry %d enabled", i)
		assert.Zero(t, entry.Rotation, "entry %d rotation", i)
	}
	// Entries 0-2 reference document A pages 0-2, entries 3-4 document B
	// pages 0-1.
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0, entries[i].DocIndex)
		assert.Equal(t, i, entries[i].PageIndex)
	}
	for i := 3; i < 5; i++ {
		assert.Equal(t, 1, entries[i].DocIndex)
		assert.Equal(t, i-3, entries[i].PageIndex)
	}
}

func TestImportAppendsAfterExisting(t *testing.T) {
	p, pathA, _ := importTwoDocs(t)

	before := p.Entries()
	require.NoError(t, p.ToggleEnabled(before[1].ID))
	require.NoError(t, p.Rotate(before[0].ID, 90))

	_, err := p.ImportFiles(pathA)
	require.NoError(t, err)

	after := p.Entries()
	require.Len(t, after, 8)

	// Existing entries keep identity, flags and positions.
	assert.Equal(t, EntryID(0), after[0].ID)
	assert.Equal(t, 90, after[0].Rotation)
	assert.False(t, after[1].Enabled)

	// New entries continue the counter and reference the new document.
	for i := 5; i < 8; i++ {
		assert.Equal(t, EntryID(i), after[i].ID)
		assert.Equal(t, 2, after[i].DocIndex)
		assert.Equal(t, i-5, after[i].PageIndex)
	}
}

func TestPageMetaDimensions(t *testing.T) {
	dir := t.TempDir()
	path := makePDF(t, dir, "rot.pdf", 2, map[int]int{1: 90})

	docs, err := LoadDocuments(path)
	require.NoError(t, err)
	pages := docs[0].Pages

	// Page 0 is unrotated portrait letter.
	assert.Equal(t, 612.0, pages[0].Width)
	assert.Equal(t, 792.0, pages[0].Height)
	assert.Equal(t, 0, pages[0].Rotation)

	// Page 1 stores /Rotate 90, so its visual dimensions swap.
	assert.Equal(t, 792.0, pages[1].Width)
	assert.Equal(t, 612.0, pages[1].Height)
	assert.Equal(t, 90, pages[1].Rotation)
}

func TestReorder(t *testing.T) {
	p, _, _ := importTwoDocs(t)

	require.NoError(t, p.Reorder([]EntryID{4, 0, 1, 2, 3}))

	entries := p.Entries()
	gotIDs := make([]EntryID, len(entries))
	for i, entry := range entries {
		gotIDs[i] = entry.ID
	}
	assert.Equal(t, []EntryID{4, 0, 1, 2, 3}, gotIDs)

	// The identifier set is unchanged, only positions moved.
	assert.Equal(t, 1, entries[0].DocIndex)
	assert.Equal(t, 1, entries[0].PageIndex)
}

func TestReorderRejectsBadPermutations(t *testing.T) {
	p, _, _ := importTwoDocs(t)
	before := p.Entries()

	tests := []struct {
		name string
		ids  []EntryID
	}{
		{"missing id", []EntryID{0, 1, 2, 3}},
		{"duplicate id", []EntryID{0, 1, 2, 3, 3}},
		{"foreign id", []EntryID{0, 1, 2, 3, 99}},
		{"too many", []EntryID{0, 1, 2, 3, 4, 4}},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Reorder(tt.ids)
			assert.ErrorIs(t, err, ErrInvalidPermutation)
			assert.Equal(t, before, p.Entries(), "failed reorder must not change the ordering")
		})
	}
}

func TestToggleEnabledIsInvolution(t *testing.T) {
	p, _, _ := importTwoDocs(t)

	require.NoError(t, p.ToggleEnabled(2))
	assert.False(t, p.Entries()[2].Enabled)

	require.NoError(t, p.ToggleEnabled(2))
	assert.True(t, p.Entries()[2].Enabled)
}

func TestToggleEnabledUnknownID(t *testing.T) {
	p, _, _ := importTwoDocs(t)
	assert.ErrorIs(t, p.ToggleEnabled(99), ErrUnknownID)
}

func TestRotateComposes(t *testing.T) {
	p, _, _ := importTwoDocs(t)

	require.NoError(t, p.Rotate(0, 90))
	assert.Equal(t, 90, p.Entries()[0].Rotation)

	require.NoError(t, p.Rotate(0, 90))
	assert.Equal(t, 180, p.Entries()[0].Rotation)

	require.NoError(t, p.Rotate(0, 90))
	require.NoError(t, p.Rotate(0, 90))
	assert.Zero(t, p.Entries()[0].Rotation, "four quarter turns return to start")
}

func TestRotateNormalizes(t *testing.T) {
	p, _, _ := importTwoDocs(t)

	require.NoError(t, p.Rotate(1, -90))
	assert.Equal(t, 270, p.Entries()[1].Rotation)

	require.NoError(t, p.Rotate(1, 450))
	assert.Equal(t, 0, p.Entries()[1].Rotation)

	// Non-quarter deltas round to the nearest quarter turn.
	require.NoError(t, p.Rotate(1, 45))
	assert.Equal(t, 90, p.Entries()[1].Rotation)
}

func TestRotateUnknownID(t *testing.T) {
	p, _, _ := importTwoDocs(t)
	assert.ErrorIs(t, p.Rotate(42, 90), ErrUnknownID)
}

func TestClear(t *testing.T) {
	p, pathA, _ := importTwoDocs(t)

	p.Clear()
	assert.Empty(t, p.Entries())
	assert.Empty(t, p.Documents())

	// The identifier counter is not reset: new imports continue it.
	_, err := p.ImportFiles(pathA)
	require.NoError(t, err)
	assert.Equal(t, EntryID(5), p.Entries()[0].ID)
}

func TestSnapshotIsolated(t *testing.T) {
	p, _, _ := importTwoDocs(t)

	snap := p.Snapshot()
	require.NoError(t, p.Reorder([]EntryID{4, 3, 2, 1, 0}))

	assert.Equal(t, EntryID(0), snap.Entries[0].ID, "snapshot must not see later mutations")
	assert.Equal(t, EntryID(4), p.Entries()[0].ID)
}

func TestNormalizeDegrees(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 0},
		{90, 90},
		{360, 0},
		{-90, 270},
		{45, 90},
		{44, 0},
		{135, 180},
		{315, 0},
		{-45, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeDegrees(tt.in), "normalizeDegrees(%d)", tt.in)
	}
}
