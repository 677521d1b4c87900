package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationReport_Record(t *testing.T) {
	r := NewOperationReport("organize")
	r.Record("a", "b", ResultSucceeded)
	r.Record("c", "", ResultSkipped)
	r.Record("d", "e", ResultFailed)
	r.Record("f", "g", ResultSucceeded)
	r.Finish(StatusCancelled)

	assert.Equal(t, 2, r.Succeeded)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 1, r.Skipped)
	assert.Len(t, r.Outcomes, 4)
	assert.Equal(t, StatusCancelled, r.Status)
	assert.False(t, r.FinishedAt.IsZero())
}

func TestDuplicateGroup_OriginalAndDuplicates(t *testing.T) {
	g := DuplicateGroup{
		Hash: "abc",
		Size: 100,
		Members: []FileRecord{
			{Path: "/old"},
			{Path: "/new1"},
			{Path: "/new2"},
		},
	}

	assert.Equal(t, "/old", g.Original().Path)
	assert.Len(t, g.Duplicates(), 2)
	assert.Equal(t, int64(200), g.Reclaimable())
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("images")
	assert.True(t, ok)
	assert.Equal(t, Images, c)

	_, ok = ParseCategory("pictures")
	assert.False(t, ok)
}

func TestProgressFunc_NilIsSafe(t *testing.T) {
	var fn ProgressFunc
	assert.NotPanics(t, func() { fn.Report(1, 2, "x") })
}
