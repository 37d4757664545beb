package compound

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DockFlow/pkg/errors"
)

func TestParseList_TwoValidOneInvalid(t *testing.T) {
	input := "aspirin CC(=O)Oc1ccccc1C(=O)O\n" +
		"ethanol CCO\n" +
		"broken notasmiles\n"

	res, err := ParseList(strings.NewReader(input))
	require.NoError(t, err)

	assert.Len(t, res.Compounds, 2)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"aspirin", "ethanol"}, res.IDs())
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, 3, res.Rejected[0].Line)
}

func TestParseList_SwappedColumnsCorrected(t *testing.T) {
	res, err := ParseList(strings.NewReader("c1ccccc1 benzene\nCCO ethanol\n"))
	require.NoError(t, err)

	require.Len(t, res.Compounds, 2)
	assert.Equal(t, Compound{ID: "benzene", SMILES: "c1ccccc1", Line: 1}, res.Compounds[0])
	assert.Equal(t, "ethanol", res.Compounds[1].ID)
	assert.Equal(t, "CCO", res.Compounds[1].SMILES)
	assert.Equal(t, 2, res.Swapped)
	assert.Zero(t, res.Failed)
}

func TestParseList_NeitherFieldValid(t *testing.T) {
	res, err := ParseList(strings.NewReader("foo bar\nZINC01 xyz\n"))
	require.NoError(t, err)
	assert.Empty(t, res.Compounds)
	assert.Equal(t, 2, res.Failed)
}

func TestParseList_SkipsBlankAndCommentLines(t *testing.T) {
	input := "# id smiles\n\n   \nm1 CCN\n"
	res, err := ParseList(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Compounds, 1)
	assert.Equal(t, 4, res.Compounds[0].Line)
	assert.Zero(t, res.Failed)
}

func TestParseList_SingleFieldAndExtraFields(t *testing.T) {
	input := "CCO\nnot-smiles\nm1 CCN extra\n"
	res, err := ParseList(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, res.Compounds, 1)
	assert.Equal(t, "cmpd_1", res.Compounds[0].ID)
	assert.Equal(t, 2, res.Failed)
	assert.Contains(t, res.Rejected[1].Reason, "expected 2 fields")
}

func TestParseList_UnsafeAndDuplicateIdentifiers(t *testing.T) {
	input := "../escape CCO\nm1 CCN\nm1 CCC\n.. CCO\n"
	res, err := ParseList(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"m1"}, res.IDs())
	assert.Equal(t, 3, res.Failed)
	assert.Contains(t, res.Rejected[1].Reason, "duplicate identifier")
}

func TestParseList_TabSeparated(t *testing.T) {
	res, err := ParseList(strings.NewReader("m1\tCCO\r\n"))
	require.NoError(t, err)
	require.Len(t, res.Compounds, 1)
	assert.Equal(t, "CCO", res.Compounds[0].SMILES)
}

func TestParseResult_Err(t *testing.T) {
	ok := &ParseResult{Compounds: []Compound{{ID: "a", SMILES: "C"}}}
	assert.NoError(t, ok.Err("list.smi"))

	bad := &ParseResult{Failed: 2, Rejected: []Rejection{{Line: 1}, {Line: 3}}}
	err := bad.Err("list.smi")
	require.Error(t, err)

	var pfe *ParseFailureError
	require.True(t, errors.As(err, &pfe))
	assert.Equal(t, 2, pfe.Failed)
	assert.Equal(t, "list.smi", pfe.Source)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCompoundParse))
	assert.Contains(t, err.Error(), "2 invalid compound line(s) in list.smi")
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compounds.smi")
	require.NoError(t, os.WriteFile(path, []byte("m1 CCO\n"), 0o644))

	res, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, res.Compounds, 1)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.smi"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeInputUnreadable))
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("ZINC000001"))
	assert.Error(t, ValidateID(""))
	assert.Error(t, ValidateID("."))
	assert.Error(t, ValidateID("a/b"))
	assert.Error(t, ValidateID(`a\b`))
	assert.Error(t, ValidateID("a,b"))
}

//Personal.AI order the ending
