package docking

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/turtacn/DockFlow/internal/domain/compound"
	"github.com/turtacn/DockFlow/internal/domain/structure"
	"github.com/turtacn/DockFlow/internal/infrastructure/chemtools"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/internal/infrastructure/process"
	"github.com/turtacn/DockFlow/pkg/errors"
)

// Files written into a diffusion docking run directory.
const (
	ManifestFile   = "all.csv"
	BadLigandsFile = "bad-ligands.txt"
	DiffDockLog    = "diffdock_log"
	ResultFile     = "result.csv"
	AggregateFile  = "results.tsv"
)

// ManifestHeader is the header row of the inference manifest.
var ManifestHeader = []string{"protein_path", "ligand_description", "complex_name", "protein_sequence"}

// DiffDock drives one diffusion docking run: it prepares the manifest, runs
// inference and rescoring, and writes the reports.
type DiffDock struct {
	opts   DiffDockOptions
	deps   Deps
	logger logging.Logger

	label    string
	runDir   string
	receptor string
	manifest string
}

// NewDiffDock validates opts, resolves paths and creates the output directory.
func NewDiffDock(opts DiffDockOptions, deps Deps) (*DiffDock, error) {
	if opts.Python == "" {
		opts.Python = DefaultPython
	}
	if opts.ScoreWorkers == 0 {
		opts.ScoreWorkers = DefaultScoreWorkers
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	for _, p := range []*string{&opts.Receptor, &opts.CompoundList, &opts.DiffDockDir, &opts.OutputDir} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeOptionsInvalid, "cannot resolve path").WithDetail(*p)
		}
		*p = abs
	}

	deps = deps.withDefaults()
	if deps.Scorer == nil {
		deps.Scorer = chemtools.NewGninaScorer(deps.Runner, "", opts.ScoreTimeout, deps.Logger)
	}

	if _, err := os.Stat(opts.OutputDir); err == nil && !opts.ContinueRun {
		return nil, errors.New(errors.ErrCodeRunDirExists, "run directory already exists").WithDetail(opts.OutputDir)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureWrite, "cannot create run directory").WithDetail(opts.OutputDir)
	}

	label := RunLabel(opts.Receptor)
	return &DiffDock{
		opts:     opts,
		deps:     deps,
		logger:   deps.Logger.Named(EngineDiffDock).With(logging.String("label", label)),
		label:    label,
		runDir:   opts.OutputDir,
		receptor: filepath.Join(opts.OutputDir, label+".pdb"),
		manifest: filepath.Join(opts.OutputDir, ManifestFile),
	}, nil
}

// Label is the run label derived from the receptor file name.
func (d *DiffDock) Label() string { return d.label }

// RunDir is the absolute run directory.
func (d *DiffDock) RunDir() string { return d.runDir }

// Receptor is the protein-only receptor written by PrepareInputs.
func (d *DiffDock) Receptor() string { return d.receptor }

// Manifest is the path of the inference manifest.
func (d *DiffDock) Manifest() string { return d.manifest }

// PrepareInputs parses the compound list, writes the protein-only receptor
// and the manifest of every valid compound. Rejected lines are counted in the
// result, not returned as an error.
func (d *DiffDock) PrepareInputs(ctx context.Context) (*compound.ParseResult, error) {
	start := time.Now()
	defer func() { d.deps.Metrics.RecordStage(EngineDiffDock, "prepare", time.Since(start)) }()

	res, err := compound.ParseFile(d.opts.CompoundList)
	if err != nil {
		return nil, err
	}
	d.deps.Metrics.RecordCompounds(len(res.Compounds), res.Swapped, res.Failed)
	for _, r := range res.Rejected {
		d.logger.Warn("compound line rejected",
			logging.Int("line", r.Line), logging.String("text", r.Text), logging.String("reason", r.Reason))
	}
	if res.Swapped > 0 {
		d.logger.Info("compound columns swapped", logging.Int("lines", res.Swapped))
	}

	protein, err := structure.CleanProtein(d.opts.Receptor, d.receptor)
	if err != nil {
		return nil, err
	}
	var sequence string
	if d.opts.IncludeSequence {
		sequence = protein.Sequence()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := writeManifest(d.manifest, d.receptor, sequence, res.Compounds); err != nil {
		return nil, err
	}

	d.logger.Info("inputs prepared",
		logging.Int("compounds", len(res.Compounds)),
		logging.Int("failed", res.Failed),
		logging.String("manifest", d.manifest))
	return res, nil
}

func writeManifest(path, receptor, sequence string, compounds []compound.Compound) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeManifestWrite, "cannot create manifest").WithDetail(path)
	}
	w := csv.NewWriter(f)
	if err := w.Write(ManifestHeader); err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrCodeManifestWrite, "cannot write manifest").WithDetail(path)
	}
	for _, c := range compounds {
		if err := w.Write([]string{receptor, c.SMILES, c.ID, sequence}); err != nil {
			f.Close()
			return errors.Wrap(err, errors.ErrCodeManifestWrite, "cannot write manifest").WithDetail(path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrCodeManifestWrite, "cannot write manifest").WithDetail(path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeManifestWrite, "cannot close manifest").WithDetail(path)
	}
	return nil
}

// InferenceCommand is the command RunDocking executes.
func (d *DiffDock) InferenceCommand() process.Command {
	args := []string{
		"-u", "-m", "inference",
		"--protein_ligand_csv", d.manifest,
		"--out_dir", d.runDir,
		"--bad_ligands", filepath.Join(d.runDir, BadLigandsFile),
	}
	if d.opts.BatchSize > 0 {
		args = append(args, "--batch_size", strconv.Itoa(d.opts.BatchSize))
	}
	return process.Command{
		Name:    d.opts.Python,
		Args:    args,
		Dir:     d.opts.DiffDockDir,
		Timeout: d.opts.DockTimeout,
		Tool:    EngineDiffDock,
	}
}

// RunDocking runs inference over the manifest. Its output is appended to the
// run's diffdock_log. A non-zero exit is returned as a TOOL_002 error.
func (d *DiffDock) RunDocking(ctx context.Context) error {
	start := time.Now()
	defer func() { d.deps.Metrics.RecordStage(EngineDiffDock, "dock", time.Since(start)) }()

	logPath := filepath.Join(d.runDir, DiffDockLog)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStructureWrite, "cannot open docking log").WithDetail(logPath)
	}
	defer f.Close()

	cmd := d.InferenceCommand()
	cmd.Log = f
	d.logger.Info("running inference", logging.String("command", cmd.String()))
	res, err := d.deps.Runner.Run(ctx, cmd)
	if err != nil {
		return errors.Wrap(err, errors.CodeUnknown, "diffdock inference failed").WithDetail(logPath)
	}
	d.logger.Info("inference finished", logging.Duration("duration", res.Duration))
	return nil
}

// BadLigands returns the identifiers the inference run could not process.
// A missing file yields nil.
func (d *DiffDock) BadLigands() ([]string, error) {
	path := filepath.Join(d.runDir, BadLigandsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeInputUnreadable, "cannot read bad ligand list").WithDetail(path)
	}
	return splitNonEmptyLines(string(data)), nil
}

// Run prepares the inputs, aborts on rejected compound lines unless
// SkipInvalid is set, docks and post-processes.
func (d *DiffDock) Run(ctx context.Context) (*Summary, error) {
	res, err := d.PrepareInputs(ctx)
	if err != nil {
		return nil, err
	}
	if !d.opts.SkipInvalid {
		if perr := res.Err(d.opts.CompoundList); perr != nil {
			return nil, perr
		}
	}
	if len(res.Compounds) == 0 {
		return nil, errors.New(errors.ErrCodeCompoundParse, "compound list has no valid entries").WithDetail(d.opts.CompoundList)
	}

	if err := d.RunDocking(ctx); err != nil {
		return nil, err
	}

	summary, err := d.PostProcess(ctx, res.Compounds)
	if err != nil {
		return nil, err
	}
	summary.Failed = res.Failed
	return summary, nil
}

//Personal.AI order the ending
