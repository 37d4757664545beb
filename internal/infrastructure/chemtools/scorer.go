package chemtools

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/turtacn/DockFlow/internal/domain/pose"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/internal/infrastructure/process"
	"github.com/turtacn/DockFlow/pkg/errors"
)

// DefaultGnina is the rescoring program looked up on PATH.
const DefaultGnina = "gnina"

// SD data tags written by the rescorer.
const (
	TagCNNScore          = "CNNscore"
	TagCNNAffinity       = "CNNaffinity"
	TagMinimizedAffinity = "minimizedAffinity"
)

// ErrNoScore means the rescorer ran but produced no usable molecule.
var ErrNoScore = errors.New(errors.ErrCodeNoScore, "rescoring produced no result")

// Scorer rescores a docked pose against its receptor.
type Scorer interface {
	Score(ctx context.Context, receptor, poseFile string) (*pose.Score, error)
}

// GninaScorer minimizes and rescores poses with gnina.
type GninaScorer struct {
	runner  process.Runner
	bin     string
	timeout time.Duration
	logger  logging.Logger
}

// NewGninaScorer returns a Scorer running bin (DefaultGnina when empty).
func NewGninaScorer(runner process.Runner, bin string, timeout time.Duration, logger logging.Logger) *GninaScorer {
	if bin == "" {
		bin = DefaultGnina
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GninaScorer{runner: runner, bin: bin, timeout: timeout, logger: logger.Named("gnina")}
}

// MinimizedPath is where the minimized pose of poseFile is written.
func MinimizedPath(poseFile string) string {
	return strings.TrimSuffix(poseFile, ".sdf") + "_minimized.sdf"
}

// Score runs "gnina -r <receptor> -l <pose> --minimize -o <out>" and reads
// the scores of the first output molecule.
func (g *GninaScorer) Score(ctx context.Context, receptor, poseFile string) (*pose.Score, error) {
	out := MinimizedPath(poseFile)
	if _, err := g.runner.Run(ctx, process.Command{
		Name:    g.bin,
		Args:    []string{"-r", receptor, "-l", poseFile, "--minimize", "-o", out},
		Timeout: g.timeout,
		Tool:    "gnina",
	}); err != nil {
		return nil, err
	}

	f, err := os.Open(out)
	if err != nil {
		return nil, ErrNoScore.WithCause(err).WithDetail(poseFile)
	}
	defer f.Close()
	return parseScore(f, poseFile)
}

func parseScore(f *os.File, poseFile string) (*pose.Score, error) {
	tags, ok, err := ReadSDTags(f)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoScore.WithDetail(poseFile)
	}
	s := &pose.Score{
		CNNScore:          tags[TagCNNScore],
		CNNAffinity:       tags[TagCNNAffinity],
		MinimizedAffinity: tags[TagMinimizedAffinity],
	}
	if s.CNNScore == "" || s.CNNAffinity == "" || s.MinimizedAffinity == "" {
		return nil, ErrNoScore.WithDetailf("%s: missing score tags", poseFile)
	}
	return s, nil
}

//Personal.AI order the ending
