package structure

import (
	"fmt"
	"strings"
)

// threeToOne maps residue names to one-letter codes. Protonation variants
// map to their parent amino acid.
var threeToOne = map[string]byte{
	"ALA": 'A', "ARG": 'R', "ASN": 'N', "ASP": 'D', "CYS": 'C',
	"GLN": 'Q', "GLU": 'E', "GLY": 'G', "HIS": 'H', "ILE": 'I',
	"LEU": 'L', "LYS": 'K', "MET": 'M', "PHE": 'F', "PRO": 'P',
	"SER": 'S', "THR": 'T', "TRP": 'W', "TYR": 'Y', "VAL": 'V',
	"MSE": 'M', // selenomethionine
	"PYL": 'O', "SEC": 'U',
	"ASX": 'B', "GLX": 'Z', "XAA": 'X', "XLE": 'J',
	"HID": 'H', "HIE": 'H', "HIP": 'H', "HSD": 'H', "HSE": 'H', "HSP": 'H',
	"CYX": 'C', "CYM": 'C', "ASH": 'D', "GLH": 'E', "LYN": 'K',
}

// IsProteinResidue reports whether name is an amino-acid residue name.
func IsProteinResidue(name string) bool {
	_, ok := threeToOne[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}

// OneLetter returns the one-letter code for a residue name, or '-' when the
// residue is unknown.
func OneLetter(name string) byte {
	if c, ok := threeToOne[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return c
	}
	return '-'
}

// Residue groups consecutive atoms sharing chain, number, insertion code and name.
type Residue struct {
	Name    string
	Seq     int
	ICode   string
	ChainID string
	Atoms   []Atom
}

// SiteLabel renders the residue as "NAME:NUM: :CHAIN", the site-residue
// syntax accepted by receptor preparation tools.
func (r Residue) SiteLabel() string {
	return fmt.Sprintf("%s:%d: :%s", r.Name, r.Seq, r.ChainID)
}

// Residues groups the atoms into residues in file order.
func (s *Structure) Residues() []Residue {
	var out []Residue
	for _, a := range s.Atoms {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.ChainID == a.ChainID() && last.Seq == a.MolID && last.ICode == a.ICode && last.Name == a.ResName() {
				last.Atoms = append(last.Atoms, a)
				continue
			}
		}
		out = append(out, Residue{Name: a.ResName(), Seq: a.MolID, ICode: a.ICode, ChainID: a.ChainID(), Atoms: []Atom{a}})
	}
	return out
}

// Sequence returns the one-letter sequence of the protein residues. Chains
// are concatenated in file order.
func (s *Structure) Sequence() string {
	residues := s.SelectProtein().Residues()
	var sb strings.Builder
	sb.Grow(len(residues))
	for _, r := range residues {
		sb.WriteByte(OneLetter(r.Name))
	}
	return sb.String()
}

//Personal.AI order the ending
