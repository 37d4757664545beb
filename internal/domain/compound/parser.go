// Package compound reads compound lists (identifier and SMILES per line) and
// validates the chemical strings before they are handed to a docking engine.
package compound

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/turtacn/DockFlow/pkg/errors"
)

// Compound is one validated entry of a compound list.
type Compound struct {
	ID     string
	SMILES string
	// Line is the 1-based line number in the source list.
	Line int
}

// Rejection records why an input line was not accepted.
type Rejection struct {
	Line   int
	Text   string
	Reason string
}

// ParseResult is the outcome of reading a compound list. Failed counts every
// rejected line; Swapped counts lines whose columns were reordered.
type ParseResult struct {
	Compounds []Compound
	Failed    int
	Swapped   int
	Rejected  []Rejection
}

// IDs returns the compound identifiers in input order.
func (r *ParseResult) IDs() []string {
	ids := make([]string, len(r.Compounds))
	for i, c := range r.Compounds {
		ids[i] = c.ID
	}
	return ids
}

// Err returns a *ParseFailureError when any line was rejected, nil otherwise.
func (r *ParseResult) Err(source string) error {
	if r.Failed == 0 {
		return nil
	}
	return NewParseFailureError(source, r.Failed, r.Rejected)
}

// ─────────────────────────────────────────────────────────────────────────────
// ParseFailureError
// ─────────────────────────────────────────────────────────────────────────────

// ParseFailureError reports that a compound list contained invalid lines and
// the run was stopped before docking. It unwraps to an INPUT_002 AppError.
type ParseFailureError struct {
	Source   string
	Failed   int
	Rejected []Rejection
	cause    *errors.AppError
}

// NewParseFailureError builds the error for source with failed rejected lines.
func NewParseFailureError(source string, failed int, rejected []Rejection) *ParseFailureError {
	msg := fmt.Sprintf("%d invalid compound line(s) in %s", failed, source)
	return &ParseFailureError{
		Source:   source,
		Failed:   failed,
		Rejected: rejected,
		cause:    errors.New(errors.ErrCodeCompoundParse, msg),
	}
}

func (e *ParseFailureError) Error() string {
	return e.cause.Error()
}

func (e *ParseFailureError) Unwrap() error {
	return e.cause
}

// ─────────────────────────────────────────────────────────────────────────────
// Parsing
// ─────────────────────────────────────────────────────────────────────────────

// ParseFile opens path and parses it with ParseList.
func ParseFile(path string) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInputUnreadable, "cannot open compound list").WithDetail(path)
	}
	defer f.Close()
	return ParseList(f)
}

// ParseList reads whitespace-separated "<id> <smiles>" lines. When the second
// field is not valid SMILES but the first is, the fields are swapped. Lines
// where neither validates are counted in Failed and skipped. Blank lines and
// lines starting with '#' are ignored; a lone valid SMILES receives the ID
// "cmpd_<line>". The returned error is non-nil only when r cannot be read.
func ParseList(r io.Reader) (*ParseResult, error) {
	res := &ParseResult{}
	seen := make(map[string]int)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		text := strings.TrimSpace(raw)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		c, swapped, reason := parseLine(text, lineNo)
		if reason == "" {
			if prev, dup := seen[c.ID]; dup {
				reason = fmt.Sprintf("duplicate identifier %q (first seen on line %d)", c.ID, prev)
			}
		}
		if reason != "" {
			res.Failed++
			res.Rejected = append(res.Rejected, Rejection{Line: lineNo, Text: text, Reason: reason})
			continue
		}
		if swapped {
			res.Swapped++
		}
		seen[c.ID] = lineNo
		res.Compounds = append(res.Compounds, c)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInputUnreadable, "cannot read compound list")
	}
	return res, nil
}

func parseLine(text string, lineNo int) (c Compound, swapped bool, reason string) {
	fields := strings.Fields(text)
	switch len(fields) {
	case 1:
		if !IsValidSMILES(fields[0]) {
			return c, false, "single field is not a valid SMILES string"
		}
		return Compound{ID: fmt.Sprintf("cmpd_%d", lineNo), SMILES: fields[0], Line: lineNo}, false, ""
	case 2:
	default:
		return c, false, fmt.Sprintf("expected 2 fields, found %d", len(fields))
	}

	id, smiles := fields[0], fields[1]
	if !IsValidSMILES(smiles) {
		if !IsValidSMILES(id) {
			return c, false, fmt.Sprintf("smiles string for compound %s is not valid", id)
		}
		id, smiles = smiles, id
		swapped = true
	}
	if err := ValidateID(id); err != nil {
		return c, false, err.Error()
	}
	return Compound{ID: id, SMILES: smiles, Line: lineNo}, swapped, ""
}

// ValidateID rejects identifiers that cannot serve as a single directory name.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." {
		return errors.New(errors.ErrCodeCompoundLine, "identifier is not a usable directory name").WithDetail(id)
	}
	if strings.ContainsAny(id, "/\\\x00,") {
		return errors.New(errors.ErrCodeCompoundLine, "identifier contains a path separator, comma or NUL").WithDetail(id)
	}
	return nil
}

//Personal.AI order the ending
