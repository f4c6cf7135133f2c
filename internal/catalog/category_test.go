package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree(opts ...TreeOption) *Tree {
	return NewTree([]Node{
		{ID: 1, Name: "Root Catalog", Path: "1"},
		{ID: 2, Name: "Default Category", Path: "1/2"},
		{ID: 14, Name: "Shoes", Path: "1/2/14"},
		{ID: 20, Name: "Running", Path: "1/2/14/20"},
		{ID: 27, Name: "Trail", Path: "1/2/14/27"},
		{ID: 31, Name: "Road", Path: "1/2/14/20/31"},
		{ID: 40, Name: "Sale", Path: "1/2/40"},
		{ID: 41, Name: "Clearance", Path: "1/2/40/41"},
	}, opts...)
}

func TestResolve(t *testing.T) {
	tree := sampleTree()

	got, err := tree.Resolve("1/2/14/27")
	require.NoError(t, err)
	assert.Equal(t, "Shoes", got)

	got, err = tree.Resolve("1/2/14/20/27")
	require.NoError(t, err)
	assert.Equal(t, "Shoes > Running", got)

	got, err = tree.Resolve("1/2/14")
	require.NoError(t, err)
	assert.Equal(t, "", got, "chains within the root set have no display name")

	got, err = tree.Resolve("1")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestResolveInvalidSegment(t *testing.T) {
	_, err := sampleTree().Resolve("1/2/x/27")
	assert.Error(t, err)
}

func TestFlatten(t *testing.T) {
	tree := sampleTree()

	got, err := tree.Flatten([]int64{27, 41})
	require.NoError(t, err)
	assert.Equal(t, "Shoes | Sale", got)

	got, err = tree.Flatten([]int64{31})
	require.NoError(t, err)
	assert.Equal(t, "Shoes > Running", got)

	got, err = tree.Flatten(nil)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	got, err = tree.Flatten([]int64{14})
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestMissingAncestorSkipped(t *testing.T) {
	var missing []int64
	tree := NewTree([]Node{
		{ID: 14, Name: "Shoes", Path: "1/2/14"},
		{ID: 27, Name: "Trail", Path: "1/2/14/20/27"},
	}, WithMissingHandler(func(err *MissingCategoryError) {
		missing = append(missing, err.ID)
	}))

	got, err := tree.Flatten([]int64{27, 99})
	require.NoError(t, err)
	assert.Equal(t, "Shoes", got)
	assert.Equal(t, []int64{20, 99}, missing)
}

func TestMissingAncestorStrict(t *testing.T) {
	tree := NewTree([]Node{
		{ID: 27, Name: "Trail", Path: "1/2/14/27"},
	}, WithStrict())

	_, err := tree.Flatten([]int64{27})
	var missing *MissingCategoryError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, int64(14), missing.ID)
	assert.Equal(t, "1/2/14/27", missing.Path)
}

func TestCustomRoots(t *testing.T) {
	tree := NewTree([]Node{
		{ID: 5, Name: "Books", Path: "1/5"},
		{ID: 6, Name: "Fiction", Path: "1/5/6"},
	}, WithRootIDs(1))

	got, err := tree.Resolve("1/5/6/9")
	require.NoError(t, err)
	assert.Equal(t, "Books > Fiction", got)
	assert.Equal(t, 2, tree.Len())
}
