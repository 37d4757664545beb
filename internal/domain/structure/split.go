package structure

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/turtacn/DockFlow/pkg/errors"
)

// SplitModels splits a multi-molecule PDB file into one file per molecule.
// A COMPND line opens "<name>_<i><ext>" (i from 0) and an END line closes it.
// Lines outside an open block are discarded. It returns the written paths.
func SplitModels(path string) ([]string, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureRead, "cannot open multi-molecule file").WithDetail(path)
	}
	defer in.Close()

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	var (
		outputs []string
		cur     *os.File
		bw      *bufio.Writer
	)
	closeCur := func() error {
		if cur == nil {
			return nil
		}
		ferr := bw.Flush()
		if cerr := cur.Close(); ferr == nil {
			ferr = cerr
		}
		cur, bw = nil, nil
		return ferr
	}
	fail := func(err error) ([]string, error) {
		_ = closeCur()
		return nil, errors.Wrap(err, errors.ErrCodeStructureWrite, "cannot split multi-molecule file").WithDetail(path)
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, "COMPND") {
			if err := closeCur(); err != nil {
				return fail(err)
			}
			name := fmt.Sprintf("%s_%d%s", stem, len(outputs), ext)
			f, err := os.Create(name)
			if err != nil {
				return fail(err)
			}
			cur, bw = f, bufio.NewWriter(f)
			outputs = append(outputs, name)
		}
		if cur == nil {
			continue
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fail(err)
		}
		if isEndRecord(line) {
			if err := closeCur(); err != nil {
				return fail(err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fail(err)
	}
	if err := closeCur(); err != nil {
		return fail(err)
	}
	return outputs, nil
}

// isEndRecord matches END but not ENDMDL.
func isEndRecord(line string) bool {
	return line == "END" || strings.HasPrefix(line, "END ")
}

//Personal.AI order the ending
