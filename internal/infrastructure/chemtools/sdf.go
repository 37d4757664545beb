package chemtools

import (
	"bufio"
	"io"
	"strings"

	"github.com/turtacn/DockFlow/pkg/errors"
)

// ReadSDTags returns the data items of the first molecule in an SD file.
// A data item starts with a header line such as "> <CNNscore>" and runs
// until the next blank line; multi-line values are joined with "\n".
// ok is false when the stream contains no molecule.
func ReadSDTags(r io.Reader) (tags map[string]string, ok bool, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	tags = make(map[string]string)
	var (
		seen    bool
		current string
		value   []string
		inItem  bool
	)
	flush := func() {
		if inItem {
			tags[current] = strings.Join(value, "\n")
		}
		inItem, current, value = false, "", nil
	}

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) != "" {
			seen = true
		}
		switch {
		case line == "$$$$":
			flush()
			return tags, true, nil
		case strings.HasPrefix(line, ">"):
			flush()
			if name, found := tagName(line); found {
				current, inItem = name, true
			}
		case inItem && strings.TrimSpace(line) == "":
			flush()
		case inItem:
			value = append(value, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeScoreParse, "cannot read SD file")
	}
	flush()
	return tags, seen, nil
}

// tagName extracts NAME from a data header "> <NAME>" or ">  <NAME> (1)".
func tagName(line string) (string, bool) {
	start := strings.IndexByte(line, '<')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(line[start+1:], '>')
	if end < 0 {
		return "", false
	}
	return line[start+1 : start+1+end], true
}

//Personal.AI order the ending
