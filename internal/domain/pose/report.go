package pose

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/turtacn/DockFlow/pkg/errors"
)

// ReportHeader is the column layout of result.csv and results.tsv. The last
// column carries the minimized affinity under its historical name.
var ReportHeader = []string{"ident", "rank", "score", "lig_sdf", "comb_pdb", "CNNscore", "CNNaffinity", "Vinardo"}

// Row is one report line.
type Row struct {
	Ident       string `json:"ident"`
	Rank        int    `json:"rank"`
	Score       string `json:"score"`
	LigandFile  string `json:"lig_sdf"`
	ComplexFile string `json:"comb_pdb"`
	CNNScore    string `json:"cnn_score"`
	CNNAffinity string `json:"cnn_affinity"`
	Vinardo     string `json:"vinardo"`
}

// NewRow builds the report row of a scored candidate. File columns hold
// base names only.
func NewRow(c Candidate, s Score) Row {
	return Row{
		Ident:       c.CompoundID,
		Rank:        c.Rank,
		Score:       c.ConfidenceText,
		LigandFile:  filepath.Base(c.PoseFile),
		ComplexFile: filepath.Base(c.ComplexFile),
		CNNScore:    s.CNNScore,
		CNNAffinity: s.CNNAffinity,
		Vinardo:     s.MinimizedAffinity,
	}
}

// Join pairs candidates with scores by index and keeps the scored ones.
func Join(cands []Candidate, scores []*Score) []Row {
	rows := make([]Row, 0, len(cands))
	for i, c := range cands {
		if i >= len(scores) || scores[i] == nil {
			continue
		}
		rows = append(rows, NewRow(c, *scores[i]))
	}
	return rows
}

func (r Row) record() []string {
	return []string{r.Ident, strconv.Itoa(r.Rank), r.Score, r.LigandFile, r.ComplexFile, r.CNNScore, r.CNNAffinity, r.Vinardo}
}

// ReportWriter writes report rows as tab-separated values.
type ReportWriter struct {
	w    *csv.Writer
	rows int
}

// NewReportWriter writes the header and returns a writer for the rows.
func NewReportWriter(w io.Writer) (*ReportWriter, error) {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(ReportHeader); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePostProcess, "cannot write report header")
	}
	return &ReportWriter{w: cw}, nil
}

// Write appends one row.
func (rw *ReportWriter) Write(r Row) error {
	if err := rw.w.Write(r.record()); err != nil {
		return errors.Wrap(err, errors.ErrCodePostProcess, "cannot write report row").WithDetail(r.Ident)
	}
	rw.rows++
	return nil
}

// Rows returns the number of rows written so far.
func (rw *ReportWriter) Rows() int { return rw.rows }

// Flush flushes buffered rows to the underlying writer.
func (rw *ReportWriter) Flush() error {
	rw.w.Flush()
	if err := rw.w.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodePostProcess, "cannot flush report")
	}
	return nil
}

// WriteReport writes a complete report to path. A report with no rows still
// gets its header.
func WriteReport(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePostProcess, "cannot create report").WithDetail(path)
	}
	rw, err := NewReportWriter(f)
	if err != nil {
		f.Close()
		return err
	}
	for _, r := range rows {
		if err := rw.Write(r); err != nil {
			f.Close()
			return err
		}
	}
	if err := rw.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodePostProcess, "cannot close report").WithDetail(path)
	}
	return nil
}

// ReadReport parses a report file written by WriteReport.
func ReadReport(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInputUnreadable, "cannot open report").WithDetail(path)
	}
	defer f.Close()
	rows, err := ParseReport(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "cannot parse report").WithDetail(path)
	}
	return rows, nil
}

// ParseReport reads report rows from r. The header line is required.
func ParseReport(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = len(ReportHeader)
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeSerialization, "report is empty")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "malformed report header")
	}
	for i, col := range ReportHeader {
		if header[i] != col {
			return nil, errors.Newf(errors.ErrCodeSerialization, "unexpected report column %q, want %q", header[i], col)
		}
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "malformed report row")
		}
		rank, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "malformed rank").WithDetail(rec[1])
		}
		rows = append(rows, Row{
			Ident:       rec[0],
			Rank:        rank,
			Score:       rec[2],
			LigandFile:  rec[3],
			ComplexFile: rec[4],
			CNNScore:    rec[5],
			CNNAffinity: rec[6],
			Vinardo:     rec[7],
		})
	}
}

//Personal.AI order the ending
