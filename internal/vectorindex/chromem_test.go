package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id string, vec []float32, version string) Record {
	return Record{
		DocumentID:   id,
		Vector:       vec,
		ModelVersion: version,
		Title:        "title " + id,
		PublishedAt:  "2025-03-01T00:00:00Z",
	}
}

func TestChromemIndexSearch(t *testing.T) {
	ctx := context.Background()
	idx, err := NewChromemIndex("", "docs", true, "v1")
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, record("a", []float32{1, 0, 0}, "v1")))
	require.NoError(t, idx.Upsert(ctx, record("b", []float32{0, 1, 0}, "v1")))
	require.NoError(t, idx.Upsert(ctx, record("c", []float32{0, 0, 1}, "v1")))
	assert.Equal(t, 3, idx.Count())

	matches, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].DocumentID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-4)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestChromemIndexSearchClampsK(t *testing.T) {
	ctx := context.Background()
	idx, err := NewChromemIndex("", "docs", true, "v1")
	require.NoError(t, err)

	// Empty collection: no matches, no error.
	matches, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, idx.Upsert(ctx, record("only", []float32{1, 0, 0}, "v1")))

	// k larger than the collection is clamped, not an error.
	matches, err = idx.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestChromemIndexHas(t *testing.T) {
	ctx := context.Background()
	idx, err := NewChromemIndex("", "docs", true, "v1")
	require.NoError(t, err)

	ok, err := idx.Has(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, idx.Upsert(ctx, record("present", []float32{0, 1, 0}, "v1")))
	ok, err = idx.Has(ctx, "present")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChromemIndexRejectsForeignVersion(t *testing.T) {
	idx, err := NewChromemIndex("", "docs", true, "v2")
	require.NoError(t, err)

	err = idx.Upsert(context.Background(), record("a", []float32{1, 0, 0}, "v1"))
	assert.Error(t, err)
	assert.Zero(t, idx.Count())
}

func TestChromemIndexModelVersionIsolation(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	v1, err := NewChromemIndex(dir, "docs", false, "v1")
	require.NoError(t, err)
	require.NoError(t, v1.Upsert(ctx, record("a", []float32{1, 0, 0}, "v1")))

	// A new model version sees an empty collection: superseded vectors can
	// never surface in its results.
	v2, err := NewChromemIndex(dir, "docs", false, "v2")
	require.NoError(t, err)
	assert.Zero(t, v2.Count())
	ok, err := v2.Has(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	// Reopening the old version still finds its vectors.
	v1again, err := NewChromemIndex(dir, "docs", false, "v1")
	require.NoError(t, err)
	assert.Equal(t, 1, v1again.Count())
}
