// Package structure reads, filters, merges and writes PDB coordinate files on
// top of gochem. Only ATOM and HETATM records of the first model are kept;
// TER and END are regenerated on write.
package structure

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	chem "github.com/rmera/gochem"

	"github.com/turtacn/DockFlow/pkg/errors"
)

// recordWidth is the fixed width every record is padded to before it is
// handed to the gochem reader.
const recordWidth = 80

// Atom is one ATOM or HETATM record: the gochem atom with its position in the
// first model. The insertion code is kept here because gochem folds column 27
// into the residue number.
type Atom struct {
	*chem.Atom
	ICode      string
	X, Y, Z    float64
	TempFactor float64
}

// ResName returns the residue name without padding.
func (a Atom) ResName() string {
	return strings.TrimSpace(a.MolName)
}

// ChainID returns the chain identifier, empty when the column is blank.
func (a Atom) ChainID() string {
	return strings.TrimSpace(a.Chain)
}

// record is a coordinate line rewritten to the full column layout.
type record struct {
	line  int
	text  string
	icode string
}

// screenRecords keeps the ATOM and HETATM records of the first model and
// rewrites each one into a line the gochem reader accepts. Blank occupancy
// and b-factor fields get 1.00 and 0.00, and the insertion code is lifted
// out of the residue number columns.
func screenRecords(r io.Reader) ([]record, error) {
	var out []record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case strings.HasPrefix(line, "ATOM  "), strings.HasPrefix(line, "HETATM"):
			if len(line) < 54 {
				return nil, errors.Newf(errors.ErrCodeStructureParse,
					"record is %d columns, need at least 54", len(line)).WithDetailf("line %d", lineNo)
			}
			out = append(out, canonicalRecord(line, lineNo, len(out)+1))
		case strings.HasPrefix(line, "ENDMDL"):
			if len(out) > 0 {
				return out, nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureRead, "cannot read structure")
	}
	return out, nil
}

func canonicalRecord(line string, lineNo, index int) record {
	b := []byte(fmt.Sprintf("%-*s", recordWidth, line))[:recordWidth]

	// Hybrid-36 serials are not decimal; serials are renumbered on write.
	if _, err := strconv.Atoi(strings.TrimSpace(string(b[6:11]))); err != nil {
		copy(b[6:11], fmt.Sprintf("%5d", index%100000))
	}
	b[11] = ' '

	icode := strings.TrimSpace(string(b[26]))
	b[26] = ' '
	fillBlank(b[54:60], "  1.00")
	fillBlank(b[60:66], "  0.00")

	return record{line: lineNo, text: string(b) + "\n", icode: icode}
}

func fillBlank(field []byte, def string) {
	if strings.TrimSpace(string(field)) == "" {
		copy(field, def)
	}
}

// locateBadRecord names the first record gochem rejects on its own.
func locateBadRecord(records []record) string {
	for _, rec := range records {
		if _, err := chem.PDBRead(strings.NewReader(rec.text)); err != nil {
			return fmt.Sprintf("line %d", rec.line)
		}
	}
	return ""
}

//Personal.AI order the ending
