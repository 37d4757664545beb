// Package pose models docking pose candidates read from a diffusion docking
// result directory and the tab-separated report built from them.
package pose

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/turtacn/DockFlow/pkg/errors"
)

// DefaultMaxConfidence is the confidence above which a pose is never kept.
const DefaultMaxConfidence = 100.0

var filenamePattern = regexp.MustCompile(`^rank(\d+)_confidence([+-]?\d+\.\d+)\.sdf$`)

// Candidate is one ranked pose of a compound.
type Candidate struct {
	CompoundID string
	PoseFile   string
	Rank       int
	Confidence float64
	// ConfidenceText is the confidence exactly as it appeared in the filename.
	ConfidenceText string
	// ComplexFile is set once the pose has been merged with the receptor.
	ComplexFile string
}

// Score holds the rescoring values as printed by the scorer.
type Score struct {
	CNNScore          string `json:"cnn_score"`
	CNNAffinity       string `json:"cnn_affinity"`
	MinimizedAffinity string `json:"minimized_affinity"`
}

// ParseFilename extracts rank and confidence from names such as
// "rank3_confidence-0.45.sdf". Rank 0 is not a valid rank.
func ParseFilename(name string) (rank int, confidence float64, confidenceText string, ok bool) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, "", false
	}
	rank, err := strconv.Atoi(m[1])
	if err != nil || rank < 1 {
		return 0, 0, "", false
	}
	confidence, err = strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, "", false
	}
	return rank, confidence, m[2], true
}

// Filter decides which candidates are kept.
type Filter struct {
	// TopN keeps ranks 1..TopN. Zero keeps every rank.
	TopN int
	// MaxConfidence excludes candidates above it. Zero means DefaultMaxConfidence.
	MaxConfidence float64
}

// NewFilter returns a Filter with the default confidence bound.
func NewFilter(topN int) Filter {
	return Filter{TopN: topN, MaxConfidence: DefaultMaxConfidence}
}

// Accept reports whether c passes the rank and confidence bounds.
func (f Filter) Accept(c Candidate) bool {
	if f.TopN != 0 && c.Rank > f.TopN {
		return false
	}
	limit := f.MaxConfidence
	if limit == 0 {
		limit = DefaultMaxConfidence
	}
	return c.Confidence <= limit
}

// SortByRank orders candidates by ascending rank, keeping the relative order
// of equal ranks.
func SortByRank(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Rank < cs[j].Rank })
}

// ScanResult is the outcome of listing one compound directory.
type ScanResult struct {
	Candidates []Candidate
	// Filtered counts pose files rejected by the filter.
	Filtered int
}

// Scan lists dir, parses every pose filename and returns the accepted
// candidates sorted by rank. Files that do not match the pose pattern are
// ignored. A missing directory yields ErrCodeToolOutputMissing.
func Scan(dir, compoundID string, f Filter) (*ScanResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeToolOutputMissing, "no docking output for compound").
				WithDetail(compoundID).WithCause(err)
		}
		return nil, errors.Wrap(err, errors.ErrCodePostProcess, "cannot list compound directory").WithDetail(dir)
	}

	res := &ScanResult{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		rank, conf, text, ok := ParseFilename(e.Name())
		if !ok {
			continue
		}
		c := Candidate{
			CompoundID:     compoundID,
			PoseFile:       filepath.Join(dir, e.Name()),
			Rank:           rank,
			Confidence:     conf,
			ConfidenceText: text,
		}
		if !f.Accept(c) {
			res.Filtered++
			continue
		}
		res.Candidates = append(res.Candidates, c)
	}
	SortByRank(res.Candidates)
	return res, nil
}

//Personal.AI order the ending
