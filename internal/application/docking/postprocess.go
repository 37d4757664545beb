package docking

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/DockFlow/internal/domain/compound"
	"github.com/turtacn/DockFlow/internal/domain/pose"
	"github.com/turtacn/DockFlow/internal/domain/structure"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DockFlow/pkg/errors"
)

// CompoundStatus is the post-processing outcome of one compound.
type CompoundStatus string

const (
	CompoundScored   CompoundStatus = "scored"
	CompoundUnscored CompoundStatus = "unscored"
	CompoundMissing  CompoundStatus = "missing"
)

// CompoundResult summarises one compound.
type CompoundResult struct {
	ID         string
	Status     CompoundStatus
	Candidates int
	Filtered   int
	Dropped    int
	Scored     int
	// Report is the per-compound result file. Empty when the compound is missing.
	Report string
}

// Summary is the outcome of a diffusion docking run.
type Summary struct {
	Label     string
	RunDir    string
	Compounds int
	// Failed counts rejected compound list lines.
	Failed   int
	Poses    int
	Filtered int
	Scored   int
	Dropped  int
	// Missing lists compounds without an output directory.
	Missing    []string
	Reports    []string
	ReportPath string
	Rows       []pose.Row
	Results    []CompoundResult
}

// PostProcess scans the docking output of every compound, converts and merges
// the kept poses, rescores them and writes the per-compound and aggregate
// reports. Per-candidate conversion and scoring failures drop the candidate.
func (d *DiffDock) PostProcess(ctx context.Context, compounds []compound.Compound) (*Summary, error) {
	start := time.Now()
	defer func() { d.deps.Metrics.RecordStage(EngineDiffDock, "postprocess", time.Since(start)) }()

	summary := &Summary{Label: d.label, RunDir: d.runDir, Compounds: len(compounds)}
	filter := pose.NewFilter(d.opts.TopN)

	for _, c := range compounds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, rows, err := d.processCompound(ctx, c.ID, filter)
		if err != nil {
			return nil, err
		}
		summary.Results = append(summary.Results, *result)
		summary.Poses += result.Candidates
		summary.Filtered += result.Filtered
		summary.Dropped += result.Dropped
		summary.Scored += result.Scored
		if result.Status == CompoundMissing {
			summary.Missing = append(summary.Missing, c.ID)
			continue
		}
		summary.Reports = append(summary.Reports, result.Report)
		summary.Rows = append(summary.Rows, rows...)
	}

	summary.ReportPath = filepath.Join(d.runDir, AggregateFile)
	if err := pose.WriteReport(summary.ReportPath, summary.Rows); err != nil {
		return nil, err
	}

	d.logger.Info("post-processing finished",
		logging.Int("compounds", summary.Compounds),
		logging.Int("poses", summary.Poses),
		logging.Int("scored", summary.Scored),
		logging.Int("dropped", summary.Dropped),
		logging.Int("missing", len(summary.Missing)))
	return summary, nil
}

func (d *DiffDock) processCompound(ctx context.Context, id string, filter pose.Filter) (*CompoundResult, []pose.Row, error) {
	result := &CompoundResult{ID: id}
	dir := filepath.Join(d.runDir, id)

	scan, err := pose.Scan(dir, id, filter)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeToolOutputMissing) {
			d.logger.Warn("no docking output", logging.Compound(id))
			result.Status = CompoundMissing
			return result, nil, nil
		}
		return nil, nil, err
	}
	result.Filtered = scan.Filtered
	d.deps.Metrics.RecordPoses(EngineDiffDock, prometheus.PoseFiltered, scan.Filtered)

	kept := make([]pose.Candidate, 0, len(scan.Candidates))
	for _, cand := range scan.Candidates {
		if err := d.prepareComplex(ctx, &cand); err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			d.logger.Warn("candidate dropped", logging.Compound(id),
				logging.String("pose", filepath.Base(cand.PoseFile)), logging.Err(err))
			result.Dropped++
			continue
		}
		kept = append(kept, cand)
	}
	pose.SortByRank(kept)
	result.Candidates = len(kept)
	d.deps.Metrics.RecordPoses(EngineDiffDock, prometheus.PoseAccepted, len(kept))

	scores, err := d.scoreAll(ctx, kept)
	if err != nil {
		return nil, nil, err
	}
	rows := pose.Join(kept, scores)
	result.Scored = len(rows)
	result.Dropped += len(kept) - len(rows)
	d.deps.Metrics.RecordPoses(EngineDiffDock, prometheus.PoseScored, result.Scored)
	d.deps.Metrics.RecordPoses(EngineDiffDock, prometheus.PoseDropped, result.Dropped)

	result.Report = filepath.Join(dir, ResultFile)
	if err := pose.WriteReport(result.Report, rows); err != nil {
		return nil, nil, err
	}
	result.Status = CompoundScored
	if len(rows) == 0 {
		result.Status = CompoundUnscored
	}
	return result, rows, nil
}

// prepareComplex converts the pose to PDB and merges it with the receptor.
func (d *DiffDock) prepareComplex(ctx context.Context, c *pose.Candidate) error {
	pdb, err := d.deps.Converter.SDFToPDB(ctx, c.PoseFile)
	if err != nil {
		return err
	}
	complexFile := structure.ComplexPath(d.receptor, pdb)
	if _, err := structure.MergeFiles(d.receptor, pdb, complexFile); err != nil {
		return err
	}
	c.ComplexFile = complexFile
	return nil
}

// scoreAll rescores cands with at most ScoreWorkers concurrent scorer runs.
// scores[i] belongs to cands[i] and is nil when the scorer failed.
func (d *DiffDock) scoreAll(ctx context.Context, cands []pose.Candidate) ([]*pose.Score, error) {
	scores := make([]*pose.Score, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.ScoreWorkers)
	for i, c := range cands {
		g.Go(func() error {
			s, err := d.deps.Scorer.Score(gctx, d.receptor, c.PoseFile)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				d.logger.Warn("rescoring failed", logging.Compound(c.CompoundID),
					logging.Int("rank", c.Rank), logging.Err(err))
				return nil
			}
			scores[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

//Personal.AI order the ending
