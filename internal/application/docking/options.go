// Package docking drives the docking engines end to end: input preparation,
// the external docking run and post-processing of the poses it writes.
package docking

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/turtacn/DockFlow/pkg/errors"
)

// Engine names used in metrics, job records and the CLI.
const (
	EngineDiffDock = "diffdock"
	EngineFred     = "fred"
)

// Defaults shared by both drivers.
const (
	DefaultTopN         = 1
	DefaultBatchSize    = -1
	DefaultScoreWorkers = 5
	DefaultPython       = "python"
	DefaultCPUs         = 1
	DefaultFpocket      = "fpocket"
	DefaultOutputDir    = "./"
)

// DiffDockOptions configures a diffusion docking run.
type DiffDockOptions struct {
	Receptor     string
	CompoundList string
	// DiffDockDir is the installation the inference module is run from.
	DiffDockDir string
	OutputDir   string

	// TopN keeps ranks 1..TopN of every compound. Zero keeps all ranks.
	TopN int
	// BatchSize is passed to the inference run when positive.
	BatchSize    int
	ScoreWorkers int

	// ContinueRun reuses an existing output directory.
	ContinueRun bool
	// SkipInvalid docks the valid compounds even when some lines were rejected.
	SkipInvalid bool
	// IncludeSequence fills the protein_sequence manifest column.
	IncludeSequence bool

	Python       string
	DockTimeout  time.Duration
	ScoreTimeout time.Duration
}

// DefaultDiffDockOptions returns the options with every default filled in.
func DefaultDiffDockOptions() DiffDockOptions {
	return DiffDockOptions{
		TopN:         DefaultTopN,
		BatchSize:    DefaultBatchSize,
		ScoreWorkers: DefaultScoreWorkers,
		Python:       DefaultPython,
	}
}

// Validate checks the required paths and numeric bounds.
func (o DiffDockOptions) Validate() error {
	switch {
	case o.Receptor == "":
		return invalidOption("receptor is required")
	case o.CompoundList == "":
		return invalidOption("compound list is required")
	case o.DiffDockDir == "":
		return invalidOption("diffdock directory is required")
	case o.OutputDir == "":
		return invalidOption("output directory is required")
	case o.TopN < 0:
		return invalidOption("top_n must be >= 0")
	case o.BatchSize == 0 || o.BatchSize < -1:
		return invalidOption("batch_size must be -1 or positive")
	case o.ScoreWorkers < 1:
		return invalidOption("score workers must be >= 1")
	}
	return nil
}

// FredOptions configures a pocket-search docking run with the OpenEye tools.
type FredOptions struct {
	Receptor     string
	CompoundList string
	OutputDir    string
	// ToolDir holds the OpenEye executables. Empty means PATH.
	ToolDir string
	CPUs    int
	// License is the OpenEye license file handed to every tool as OE_LICENSE.
	License string
	// HitlistSize of zero keeps every docked molecule.
	HitlistSize int
	FpocketBin  string
	// ConvertBin converts the docked molecules to PDB. It is resolved
	// through PATH, not ToolDir.
	ConvertBin string
	// Timeout applies to each tool invocation.
	Timeout time.Duration
}

// DefaultFredOptions returns the options with every default filled in.
func DefaultFredOptions() FredOptions {
	return FredOptions{
		OutputDir:  DefaultOutputDir,
		CPUs:       DefaultCPUs,
		FpocketBin: DefaultFpocket,
	}
}

// Validate checks the required paths and numeric bounds.
func (o FredOptions) Validate() error {
	switch {
	case o.Receptor == "":
		return invalidOption("receptor is required")
	case o.CompoundList == "":
		return invalidOption("compound list is required")
	case o.CPUs < 1:
		return invalidOption("cpus must be >= 1")
	case o.HitlistSize < 0:
		return invalidOption("hitlist_size must be >= 0")
	}
	return nil
}

func invalidOption(msg string) error {
	return errors.New(errors.ErrCodeOptionsInvalid, msg)
}

// RunLabel is the receptor file name up to its first dot: "1abc.clean.pdb"
// gives "1abc".
func RunLabel(receptor string) string {
	base := filepath.Base(receptor)
	if i := strings.IndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}

//Personal.AI order the ending
