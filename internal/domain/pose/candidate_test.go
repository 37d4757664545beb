package pose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DockFlow/pkg/errors"
)

func TestParseFilename(t *testing.T) {
	rank, conf, text, ok := ParseFilename("rank3_confidence-0.45.sdf")
	require.True(t, ok)
	assert.Equal(t, 3, rank)
	assert.InDelta(t, -0.45, conf, 1e-12)
	assert.Equal(t, "-0.45", text)

	rank, conf, text, ok = ParseFilename("rank12_confidence1.50.sdf")
	require.True(t, ok)
	assert.Equal(t, 12, rank)
	assert.InDelta(t, 1.5, conf, 1e-12)
	assert.Equal(t, "1.50", text, "text keeps trailing zeros")

	for _, name := range []string{
		"rank1.sdf",
		"rank1_confidence-0.45.pdb",
		"rank1_confidence-0.45.sdf.bak",
		"rank0_confidence0.10.sdf",
		"rankA_confidence0.10.sdf",
		"rank1_confidence1.sdf",
		"rank1_confidence-0.45_rec_rank1.pdb",
	} {
		_, _, _, ok := ParseFilename(name)
		assert.False(t, ok, name)
	}
}

func TestFilter_Accept(t *testing.T) {
	c := Candidate{Rank: 3, Confidence: -0.45}

	assert.False(t, NewFilter(2).Accept(c), "rank above top-N")
	assert.True(t, NewFilter(3).Accept(c))
	assert.True(t, NewFilter(0).Accept(c), "top-N 0 keeps every rank")

	high := Candidate{Rank: 1, Confidence: 100.5}
	assert.False(t, NewFilter(0).Accept(high))
	assert.False(t, Filter{}.Accept(high), "zero bound means the default bound")
	assert.True(t, NewFilter(0).Accept(Candidate{Rank: 1, Confidence: 100}))
}

func TestSortByRank(t *testing.T) {
	cs := []Candidate{{Rank: 3, PoseFile: "a"}, {Rank: 1}, {Rank: 3, PoseFile: "b"}, {Rank: 2}}
	SortByRank(cs)
	assert.Equal(t, []int{1, 2, 3, 3}, []int{cs[0].Rank, cs[1].Rank, cs[2].Rank, cs[3].Rank})
	assert.Equal(t, "a", cs[2].PoseFile)
	assert.Equal(t, "b", cs[3].PoseFile)
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "rank3_confidence-1.20.sdf")
	touch(t, dir, "rank1_confidence-0.45.sdf")
	touch(t, dir, "rank2_confidence-0.80.sdf")
	touch(t, dir, "rank4_confidence101.00.sdf")
	touch(t, dir, "rank1.sdf")
	touch(t, dir, "rank1_confidence-0.45.pdb")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "rank5_confidence0.10.sdf"), 0o755))

	res, err := Scan(dir, "cmpd", NewFilter(0))
	require.NoError(t, err)
	require.Len(t, res.Candidates, 3)
	assert.Equal(t, 1, res.Filtered)
	for i, c := range res.Candidates {
		assert.Equal(t, i+1, c.Rank)
		assert.Equal(t, "cmpd", c.CompoundID)
		assert.Equal(t, dir, filepath.Dir(c.PoseFile))
	}

	res, err = Scan(dir, "cmpd", NewFilter(2))
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 2)
	assert.Equal(t, 2, res.Filtered)
}

func TestScan_MissingDirectory(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "absent"), "absent", NewFilter(1))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolOutputMissing))
}

//Personal.AI order the ending
