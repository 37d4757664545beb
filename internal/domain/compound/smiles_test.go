package compound

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/DockFlow/pkg/errors"
)

func TestValidateSMILES_Valid(t *testing.T) {
	valid := []string{
		"C",
		"CCO",
		"c1ccccc1",
		"CC(=O)Oc1ccccc1C(=O)O",
		"C[C@@H](N)C(=O)O",
		"[Na+].[Cl-]",
		"C%10CCCCC%10",
		"Clc1ccc(Br)cc1",
		"[13CH3]C",
		"c1cc[nH]c1",
		"F/C=C/F",
		"C1CC1C1CC1",
		"[se]1cccc1",
	}
	for _, s := range valid {
		assert.NoError(t, ValidateSMILES(s), s)
	}
}

func TestValidateSMILES_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"CHEMBL25",
		"ZINC000123456",
		"aspirin",
		"cmpd1",
		"lig_1",
		"C1CC",
		"CC(C",
		"C)C",
		"C()C",
		"[Xx]",
		"[C",
		"C]",
		"12",
		"=CC",
		"C@C",
		"C%1C",
	}
	for _, s := range invalid {
		err := ValidateSMILES(s)
		if assert.Error(t, err, s) {
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidSMILES), s)
		}
	}
}

func TestIsValidSMILES(t *testing.T) {
	assert.True(t, IsValidSMILES("CCN"))
	assert.False(t, IsValidSMILES("ident-7"))
}

//Personal.AI order the ending
