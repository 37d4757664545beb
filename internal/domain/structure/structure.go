package structure

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	chem "github.com/rmera/gochem"
	v3 "github.com/rmera/gochem/v3"

	"github.com/turtacn/DockFlow/pkg/errors"
)

// Structure is an ordered list of atoms read from, or destined for, a PDB file.
type Structure struct {
	Name  string
	Atoms []Atom
}

// Len returns the number of atoms.
func (s *Structure) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Atoms)
}

// Load reads the first model of a PDB file.
func Load(path string) (*Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureRead, "cannot open structure file").WithDetail(path)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		var ae *errors.AppError
		if errors.As(err, &ae) {
			detail := path
			if ae.Detail != "" {
				detail += ": " + ae.Detail
			}
			return nil, ae.WithDetail(detail)
		}
		return nil, err
	}
	s.Name = Label(path)
	return s, nil
}

// Parse reads ATOM and HETATM records up to the first ENDMDL. A structure
// without atoms is an error.
func Parse(r io.Reader) (*Structure, error) {
	records, err := screenRecords(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeStructureEmpty, "structure contains no ATOM or HETATM records")
	}

	var buf bytes.Buffer
	for _, rec := range records {
		buf.WriteString(rec.text)
	}
	mol, err := chem.PDBRead(&buf)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureParse, "malformed coordinate record").
			WithDetail(locateBadRecord(records))
	}
	if mol.Len() != len(records) || len(mol.Coords) == 0 {
		return nil, errors.Newf(errors.ErrCodeStructureParse, "read %d of %d coordinate records", mol.Len(), len(records))
	}

	coords := mol.Coords[0]
	s := &Structure{Atoms: make([]Atom, mol.Len())}
	for i, at := range mol.Atoms {
		a := Atom{
			Atom:  at,
			ICode: records[i].icode,
			X:     coords.At(i, 0),
			Y:     coords.At(i, 1),
			Z:     coords.At(i, 2),
		}
		if len(mol.Bfactors) > 0 && i < len(mol.Bfactors[0]) {
			a.TempFactor = mol.Bfactors[0][i]
		}
		s.Atoms[i] = a
	}
	return s, nil
}

// Filter returns a new Structure with the atoms for which keep returns true.
func (s *Structure) Filter(keep func(Atom) bool) *Structure {
	out := &Structure{Name: s.Name}
	for _, a := range s.Atoms {
		if keep(a) {
			out.Atoms = append(out.Atoms, a)
		}
	}
	return out
}

// SelectProtein returns the atoms belonging to amino-acid residues, including
// common modified and protonation-state variants. Waters, ions and ligands
// are dropped.
func (s *Structure) SelectProtein() *Structure {
	return s.Filter(func(a Atom) bool { return IsProteinResidue(a.MolName) })
}

// Merge concatenates the atoms of every input into a new Structure. The
// result has exactly the sum of the input atom counts.
func Merge(parts ...*Structure) *Structure {
	n := 0
	for _, p := range parts {
		n += p.Len()
	}
	out := &Structure{Atoms: make([]Atom, 0, n)}
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == nil {
			continue
		}
		out.Atoms = append(out.Atoms, p.Atoms...)
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	out.Name = strings.Join(names, "_")
	return out
}

// molecule builds a gochem molecule from copies of the atoms with serials
// renumbered from 1. The source atoms are left untouched.
func (s *Structure) molecule() (*chem.Molecule, error) {
	if s.Len() == 0 {
		return nil, errors.New(errors.ErrCodeStructureEmpty, "structure contains no atoms")
	}
	atoms := make([]*chem.Atom, len(s.Atoms))
	coords := v3.Zeros(len(s.Atoms))
	bfactors := make([]float64, len(s.Atoms))
	for i, a := range s.Atoms {
		// gochem drops over-long names without reporting it.
		if len(a.Name) > 4 {
			return nil, errors.Newf(errors.ErrCodeStructureWrite, "atom name %q is wider than 4 columns", a.Name)
		}
		at := new(chem.Atom)
		at.Copy(a.Atom)
		at.ID = i%99999 + 1
		at.Symbol = strings.ToUpper(at.Symbol)
		atoms[i] = at
		coords.Set(i, 0, a.X)
		coords.Set(i, 1, a.Y)
		coords.Set(i, 2, a.Z)
		bfactors[i] = a.TempFactor
	}
	mol, err := chem.NewMolecule([]*v3.Matrix{coords}, chem.NewTopology(0, 1, atoms), [][]float64{bfactors})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureWrite, "cannot build molecule")
	}
	return mol, nil
}

// Encode writes the structure as PDB records, renumbering serials from 1.
// TER separates chains and closes the last one, and the output ends with END.
func (s *Structure) Encode(w io.Writer) error {
	mol, err := s.molecule()
	if err != nil {
		return err
	}
	if err := chem.PDBWrite(w, mol.Coords[0], mol, mol.Bfactors[0]); err != nil {
		return errors.Wrap(err, errors.ErrCodeStructureWrite, "cannot encode structure")
	}
	return nil
}

// Write saves the structure to path, creating parent directories.
func (s *Structure) Write(path string) error {
	mol, err := s.molecule()
	if err != nil {
		var ae *errors.AppError
		if errors.As(err, &ae) {
			return ae.WithDetail(path)
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeStructureWrite, "cannot create output directory").WithDetail(path)
	}
	if err := chem.PDBFileWrite(path, mol.Coords[0], mol, mol.Bfactors[0]); err != nil {
		return errors.Wrap(err, errors.ErrCodeStructureWrite, "cannot write structure file").WithDetail(path)
	}
	return nil
}

// CleanProtein loads src, keeps the protein atoms and writes them to dst.
func CleanProtein(src, dst string) (*Structure, error) {
	s, err := Load(src)
	if err != nil {
		return nil, err
	}
	protein := s.SelectProtein()
	if protein.Len() == 0 {
		return nil, errors.New(errors.ErrCodeStructureEmpty, "structure contains no protein residues").WithDetail(src)
	}
	if err := protein.Write(dst); err != nil {
		return nil, err
	}
	return protein, nil
}

// MergeFiles writes the combination of a protein and a ligand file to dst and
// returns the combined atom count.
func MergeFiles(proteinPath, ligandPath, dst string) (int, error) {
	protein, err := Load(proteinPath)
	if err != nil {
		return 0, err
	}
	ligand, err := Load(ligandPath)
	if err != nil {
		return 0, err
	}
	merged := Merge(protein, ligand)
	if err := merged.Write(dst); err != nil {
		return 0, err
	}
	return merged.Len(), nil
}

// Label returns the base name of path without its final extension:
// "/data/1abc_lig.pdb" gives "1abc_lig".
func Label(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ComplexPath returns "<dir of ligand>/<protein label>_<ligand label>.pdb".
func ComplexPath(proteinPath, ligandPath string) string {
	return filepath.Join(filepath.Dir(ligandPath), Label(proteinPath)+"_"+Label(ligandPath)+".pdb")
}

//Personal.AI order the ending
