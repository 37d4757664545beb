package jobs

import (
	"context"
	"path/filepath"

	"github.com/turtacn/DockFlow/internal/application/docking"
	"github.com/turtacn/DockFlow/internal/config"
	"github.com/turtacn/DockFlow/internal/domain/job"
	"github.com/turtacn/DockFlow/internal/domain/pose"
	"github.com/turtacn/DockFlow/internal/infrastructure/chemtools"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/internal/infrastructure/process"
	"github.com/turtacn/DockFlow/pkg/errors"
)

// Outcome is what a finished docking run hands back to the service.
type Outcome struct {
	Label       string
	RunDir      string
	ReportPath  string
	SiteResidue string
	Compounds   int
	Failed      int
	Poses       int
	Scored      int
	Dropped     int
	Missing     int
	Rows        []pose.Row
	// Files are the artifacts worth keeping, as absolute paths.
	Files []string
}

// Engine runs the docking driver selected by a request.
type Engine interface {
	Run(ctx context.Context, req job.Request) (*Outcome, error)
}

// RunDirFor returns the absolute directory a request will write to. Jobs
// sharing it are serialised.
func RunDirFor(req job.Request) (string, error) {
	out := req.OutputDir
	if out == "" {
		out = docking.DefaultOutputDir
	}
	abs, err := filepath.Abs(out)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeJobInvalid, "cannot resolve output directory").WithDetail(out)
	}
	if req.Engine == job.EngineFred {
		return filepath.Join(abs, "run_"+docking.RunLabel(req.Receptor)), nil
	}
	return abs, nil
}

// DockingEngine runs the in-process drivers with configured tools.
type DockingEngine struct {
	cfg   *config.Config
	deps  docking.Deps
	cache chemtools.ScoreCache
}

// NewDockingEngine returns an engine. cache may be nil; it is used only
// when scoring.cache_enabled is set.
func NewDockingEngine(cfg *config.Config, deps docking.Deps, cache chemtools.ScoreCache) *DockingEngine {
	return &DockingEngine{cfg: cfg, deps: deps, cache: cache}
}

// Run dispatches on req.Engine.
func (e *DockingEngine) Run(ctx context.Context, req job.Request) (*Outcome, error) {
	switch req.Engine {
	case job.EngineDiffDock:
		return e.runDiffDock(ctx, req)
	case job.EngineFred:
		return e.runFred(ctx, req)
	default:
		return nil, errors.New(errors.ErrCodeJobInvalid, "unknown engine").WithDetail(req.Engine)
	}
}

// DiffDockOptions merges req over the configured defaults.
func (e *DockingEngine) DiffDockOptions(req job.Request) docking.DiffDockOptions {
	opts := docking.DefaultDiffDockOptions()
	opts.Receptor = req.Receptor
	opts.CompoundList = req.CompoundList
	opts.OutputDir = req.OutputDir
	opts.DiffDockDir = e.cfg.DiffDock.Dir
	opts.TopN = e.cfg.DiffDock.TopN
	if req.TopN != nil {
		opts.TopN = *req.TopN
	}
	opts.BatchSize = e.cfg.DiffDock.BatchSize
	if req.BatchSize != 0 {
		opts.BatchSize = req.BatchSize
	}
	if e.cfg.Scoring.Workers > 0 {
		opts.ScoreWorkers = e.cfg.Scoring.Workers
	}
	if req.ScoreWorkers > 0 {
		opts.ScoreWorkers = req.ScoreWorkers
	}
	opts.ContinueRun = req.ContinueRun
	opts.SkipInvalid = req.SkipInvalid || e.cfg.DiffDock.SkipInvalid
	opts.IncludeSequence = req.IncludeSequence || e.cfg.DiffDock.IncludeSequence
	if e.cfg.Tools.Python != "" {
		opts.Python = e.cfg.Tools.Python
	}
	opts.DockTimeout = e.cfg.Tools.DockTimeout
	opts.ScoreTimeout = e.cfg.Tools.ScoreTimeout
	return opts
}

// FredOptions merges req over the configured defaults.
func (e *DockingEngine) FredOptions(req job.Request) docking.FredOptions {
	opts := docking.DefaultFredOptions()
	opts.Receptor = req.Receptor
	opts.CompoundList = req.CompoundList
	if req.OutputDir != "" {
		opts.OutputDir = req.OutputDir
	}
	opts.ToolDir = e.cfg.Tools.OpenEye
	if e.cfg.Fred.CPUs > 0 {
		opts.CPUs = e.cfg.Fred.CPUs
	}
	if req.CPUs > 0 {
		opts.CPUs = req.CPUs
	}
	opts.HitlistSize = e.cfg.Fred.HitlistSize
	if req.HitlistSize != nil {
		opts.HitlistSize = *req.HitlistSize
	}
	opts.License = e.cfg.Fred.License
	if e.cfg.Tools.Fpocket != "" {
		opts.FpocketBin = e.cfg.Tools.Fpocket
	}
	opts.ConvertBin = e.cfg.Tools.Converter
	opts.Timeout = e.cfg.Tools.DockTimeout
	return opts
}

func (e *DockingEngine) driverDeps() docking.Deps {
	deps := e.deps
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Runner == nil {
		deps.Runner = process.NewRunner(deps.Logger, deps.Metrics)
	}
	if deps.Converter == nil {
		deps.Converter = chemtools.NewConverter(deps.Runner, chemtools.ConverterOptions{
			Obabel:  e.cfg.Tools.Obabel,
			Timeout: e.cfg.Tools.ConvertTimeout,
		}, deps.Logger)
	}
	if deps.Scorer == nil {
		var scorer chemtools.Scorer = chemtools.NewGninaScorer(deps.Runner, e.cfg.Tools.Gnina, e.cfg.Tools.ScoreTimeout, deps.Logger)
		if e.cache != nil && e.cfg.Scoring.CacheEnabled {
			scorer = chemtools.NewCachedScorer(scorer, e.cache, e.cfg.Scoring.CacheTTL, docking.EngineDiffDock, deps.Metrics, deps.Logger)
		}
		deps.Scorer = scorer
	}
	return deps
}

func (e *DockingEngine) runDiffDock(ctx context.Context, req job.Request) (*Outcome, error) {
	d, err := docking.NewDiffDock(e.DiffDockOptions(req), e.driverDeps())
	if err != nil {
		return nil, err
	}
	s, err := d.Run(ctx)
	if err != nil {
		return nil, err
	}

	files := []string{d.Manifest(), s.ReportPath, filepath.Join(d.RunDir(), docking.DiffDockLog)}
	files = append(files, s.Reports...)
	for _, r := range s.Rows {
		files = append(files, filepath.Join(d.RunDir(), r.Ident, r.ComplexFile))
	}
	return &Outcome{
		Label:      s.Label,
		RunDir:     s.RunDir,
		ReportPath: s.ReportPath,
		Compounds:  s.Compounds,
		Failed:     s.Failed,
		Poses:      s.Poses,
		Scored:     s.Scored,
		Dropped:    s.Dropped,
		Missing:    len(s.Missing),
		Rows:       s.Rows,
		Files:      files,
	}, nil
}

func (e *DockingEngine) runFred(ctx context.Context, req job.Request) (*Outcome, error) {
	f, err := docking.NewFred(e.FredOptions(req), e.deps)
	if err != nil {
		return nil, err
	}
	s, err := f.Run(ctx)
	if err != nil {
		return nil, err
	}

	files := []string{filepath.Join(s.RunDir, docking.FredLog)}
	if s.Report != "" {
		files = append(files, s.Report)
	}
	if s.Docked != "" {
		files = append(files, s.Docked)
	}
	files = append(files, s.Complexes...)
	return &Outcome{
		Label:       s.Label,
		RunDir:      s.RunDir,
		ReportPath:  s.Report,
		SiteResidue: s.SiteResidue,
		Poses:       len(s.Complexes),
		Files:       files,
	}, nil
}

//Personal.AI order the ending
