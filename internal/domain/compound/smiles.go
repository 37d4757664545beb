package compound

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/turtacn/DockFlow/pkg/errors"
)

var (
	validSMILESChars = regexp.MustCompile(`^[A-Za-z0-9@+\-\[\]()=#$:/\\%.*~]+$`)

	// bracketAtom matches the inside of [...]: isotope, symbol, chirality,
	// hydrogen count, charge and atom class.
	bracketAtom = regexp.MustCompile(`^(\d+)?([A-Z][a-z]?|b|c|n|o|p|s|se|as|te|\*)(@(TH[12]|AL[12]|SP[1-3]|TB\d{1,2}|OH\d{1,2}|@)?)?(H\d?)?([+-]{1,2}\d*)?(:\d+)?$`)
)

// organicSubset lists the atoms that may appear outside brackets.
var organicSubset = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true,
	"F": true, "Cl": true, "Br": true, "I": true,
	"b": true, "c": true, "n": true, "o": true, "p": true, "s": true,
	"*": true,
}

const periodicTable = "H He Li Be B C N O F Ne Na Mg Al Si P S Cl Ar K Ca Sc Ti V Cr Mn Fe Co Ni Cu Zn " +
	"Ga Ge As Se Br Kr Rb Sr Y Zr Nb Mo Tc Ru Rh Pd Ag Cd In Sn Sb Te I Xe Cs Ba La Ce Pr Nd " +
	"Pm Sm Eu Gd Tb Dy Ho Er Tm Yb Lu Hf Ta W Re Os Ir Pt Au Hg Tl Pb Bi Po At Rn Fr Ra Ac Th " +
	"Pa U Np Pu Am Cm Bk Cf Es Fm Md No Lr Rf Db Sg Bh Hs Mt Ds Rg Cn Nh Fl Mc Lv Ts Og"

var elements = func() map[string]bool {
	m := make(map[string]bool, 118)
	for _, sym := range strings.Fields(periodicTable) {
		m[sym] = true
	}
	return m
}()

// ValidateSMILES performs a syntactic check of a SMILES string: character
// set, bracket atoms, branch balance, ring-closure pairing and atom symbols.
// It does not perceive valence or aromaticity.
func ValidateSMILES(smiles string) error {
	if smiles == "" {
		return invalidSMILES(smiles, "empty string")
	}
	if !validSMILESChars.MatchString(smiles) {
		return invalidSMILES(smiles, "contains characters outside the SMILES alphabet")
	}
	switch smiles[0] {
	case ')', '=', '#', '$', ':', '/', '\\', '.', '%', '~':
		return invalidSMILES(smiles, "starts with a bond or branch close")
	}
	if smiles[0] >= '0' && smiles[0] <= '9' {
		return invalidSMILES(smiles, "starts with a ring-closure digit")
	}
	if err := checkBranches(smiles); err != nil {
		return invalidSMILES(smiles, err.Error())
	}

	atoms := 0
	rings := make(map[string]int)
	for i := 0; i < len(smiles); {
		ch := smiles[i]
		switch {
		case ch == '[':
			end := strings.IndexByte(smiles[i:], ']')
			if end < 0 {
				return invalidSMILES(smiles, "unclosed bracket atom")
			}
			inner := smiles[i+1 : i+end]
			if err := checkBracketAtom(inner); err != nil {
				return invalidSMILES(smiles, err.Error())
			}
			atoms++
			i += end + 1
		case ch == ']':
			return invalidSMILES(smiles, "unbalanced brackets")
		case ch == '%':
			if i+2 >= len(smiles) || !isDigit(smiles[i+1]) || !isDigit(smiles[i+2]) {
				return invalidSMILES(smiles, "'%' must be followed by two digits")
			}
			rings[smiles[i+1:i+3]]++
			i += 3
		case isDigit(ch):
			rings[string(ch)]++
			i++
		case isBondOrBranch(ch):
			i++
		default:
			if i+1 < len(smiles) && organicSubset[smiles[i:i+2]] {
				atoms++
				i += 2
				continue
			}
			if organicSubset[string(ch)] {
				atoms++
				i++
				continue
			}
			return invalidSMILES(smiles, fmt.Sprintf("invalid atom symbol %q at position %d", ch, i))
		}
	}

	if atoms == 0 {
		return invalidSMILES(smiles, "no atoms")
	}
	for ring, n := range rings {
		if n%2 != 0 {
			return invalidSMILES(smiles, fmt.Sprintf("unmatched ring closure %s", ring))
		}
	}
	return nil
}

// IsValidSMILES reports whether ValidateSMILES accepts s.
func IsValidSMILES(s string) bool {
	return ValidateSMILES(s) == nil
}

func invalidSMILES(smiles, reason string) error {
	return errors.New(errors.ErrCodeInvalidSMILES, reason).WithDetail(smiles)
}

func checkBranches(s string) error {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			if i+1 < len(s) && s[i+1] == ')' {
				return fmt.Errorf("empty branch at position %d", i)
			}
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced parentheses")
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced parentheses")
	}
	return nil
}

func checkBracketAtom(inner string) error {
	m := bracketAtom.FindStringSubmatch(inner)
	if m == nil {
		return fmt.Errorf("malformed bracket atom [%s]", inner)
	}
	sym := m[2]
	if sym[0] >= 'A' && sym[0] <= 'Z' && !elements[sym] {
		return fmt.Errorf("unknown element %q", sym)
	}
	return nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isBondOrBranch(ch byte) bool {
	switch ch {
	case '(', ')', '.', '-', '=', '#', '$', ':', '/', '\\', '~':
		return true
	}
	return false
}

//Personal.AI order the ending
