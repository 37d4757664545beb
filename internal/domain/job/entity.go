// Package job models a queued or executed docking run and its persisted poses.
package job

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/DockFlow/pkg/errors"
)

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Docking engines a Request may select.
const (
	EngineDiffDock = "diffdock"
	EngineFred     = "fred"
)

// Request is the submitted description of a docking run. Zero numeric fields
// take the driver defaults. TopN and HitlistSize are pointers because zero
// keeps every rank or every docked molecule.
type Request struct {
	Engine          string `json:"engine"`
	Receptor        string `json:"receptor"`
	CompoundList    string `json:"compound_list"`
	OutputDir       string `json:"output_dir"`
	TopN            *int   `json:"top_n,omitempty"`
	BatchSize       int    `json:"batch_size,omitempty"`
	ScoreWorkers    int    `json:"score_workers,omitempty"`
	CPUs            int    `json:"cpus,omitempty"`
	HitlistSize     *int   `json:"hitlist_size,omitempty"`
	SkipInvalid     bool   `json:"skip_invalid,omitempty"`
	IncludeSequence bool   `json:"include_sequence,omitempty"`
	ContinueRun     bool   `json:"continue_run,omitempty"`
}

// Validate checks the fields every engine needs.
func (r Request) Validate() error {
	switch r.Engine {
	case EngineDiffDock, EngineFred:
	default:
		return errors.New(errors.ErrCodeJobInvalid, "unknown engine").WithDetail(r.Engine)
	}
	if strings.TrimSpace(r.Receptor) == "" {
		return errors.New(errors.ErrCodeJobInvalid, "receptor is required")
	}
	if strings.TrimSpace(r.CompoundList) == "" {
		return errors.New(errors.ErrCodeJobInvalid, "compound list is required")
	}
	// DiffDock refuses an existing directory, so there is no usable default.
	if r.Engine == EngineDiffDock && strings.TrimSpace(r.OutputDir) == "" {
		return errors.New(errors.ErrCodeJobInvalid, "output directory is required for diffdock")
	}
	if negative(r.TopN) || negative(r.HitlistSize) || r.BatchSize < -1 || r.ScoreWorkers < 0 || r.CPUs < 0 {
		return errors.New(errors.ErrCodeJobInvalid, "numeric options must not be negative")
	}
	return nil
}

func negative(n *int) bool {
	return n != nil && *n < 0
}

// Job is a docking run tracked by the job service.
type Job struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	Request     Request    `json:"request"`
	Label       string     `json:"label,omitempty"`
	RunDir      string     `json:"run_dir,omitempty"`
	ReportPath  string     `json:"report_path,omitempty"`
	SiteResidue string     `json:"site_residue,omitempty"`
	Compounds   int        `json:"compounds"`
	Failed      int        `json:"failed"`
	Poses       int        `json:"poses"`
	Scored      int        `json:"scored"`
	Dropped     int        `json:"dropped"`
	Missing     int        `json:"missing"`
	Artifacts   int        `json:"artifacts"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// New validates req and returns a queued Job with a fresh ID.
func New(req Request, now time.Time) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Request:   req,
		CreatedAt: now.UTC(),
	}, nil
}

// Start moves a queued job to running.
func (j *Job) Start(now time.Time) error {
	if j.Status != StatusQueued {
		return j.transitionError(StatusRunning)
	}
	t := now.UTC()
	j.Status = StatusRunning
	j.StartedAt = &t
	return nil
}

// Complete moves a running job to completed.
func (j *Job) Complete(now time.Time) error {
	if j.Status != StatusRunning {
		return j.transitionError(StatusCompleted)
	}
	t := now.UTC()
	j.Status = StatusCompleted
	j.FinishedAt = &t
	return nil
}

// Fail records cause and moves any non-terminal job to failed.
func (j *Job) Fail(now time.Time, cause error) error {
	if j.Status.IsTerminal() {
		return j.transitionError(StatusFailed)
	}
	t := now.UTC()
	j.Status = StatusFailed
	j.FinishedAt = &t
	if cause != nil {
		j.Error = cause.Error()
	}
	return nil
}

func (j *Job) transitionError(to Status) error {
	return errors.Newf(errors.ErrCodeJobInvalid, "cannot move job from %s to %s", j.Status, to).WithDetail(j.ID)
}

// Pose is one scored pose of a job, as listed in the run report.
type Pose struct {
	JobID       string `json:"job_id"`
	Compound    string `json:"compound"`
	Rank        int    `json:"rank"`
	Score       string `json:"score"`
	CNNScore    string `json:"cnn_score"`
	CNNAffinity string `json:"cnn_affinity"`
	Vinardo     string `json:"vinardo"`
	LigandFile  string `json:"lig_sdf"`
	ComplexFile string `json:"comb_pdb"`
}

//Personal.AI order the ending
