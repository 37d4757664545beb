// Package jobs runs docking requests as tracked jobs: it persists their
// state, serialises runs sharing a directory, uploads artifacts and publishes
// lifecycle events.
package jobs

import (
	"context"
	"time"

	"github.com/turtacn/DockFlow/internal/domain/job"
	"github.com/turtacn/DockFlow/internal/domain/pose"
	"github.com/turtacn/DockFlow/internal/infrastructure/database/redis"
	"github.com/turtacn/DockFlow/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DockFlow/internal/infrastructure/storage/minio"
	"github.com/turtacn/DockFlow/pkg/errors"
)

// Service defines the job operations used by the CLI, the HTTP API and the
// worker.
type Service interface {
	// Submit persists a queued job and publishes it for a worker.
	Submit(ctx context.Context, req job.Request) (*job.Job, error)
	// Execute creates a job and runs it in the calling goroutine.
	Execute(ctx context.Context, req job.Request) (*job.Job, error)
	Get(ctx context.Context, id string) (*job.Job, error)
	List(ctx context.Context, limit int) ([]*job.Job, error)
	ListPoses(ctx context.Context, id string) ([]job.Pose, error)
	// HandleMessage is the consumer handler for requested jobs.
	HandleMessage(ctx context.Context, msg *kafka.Message) error
}

// ArtifactUploader stores the files of a finished run.
type ArtifactUploader interface {
	UploadRun(ctx context.Context, jobID, runDir string, files []string) ([]minio.Artifact, error)
}

// Topics names the job event topics.
type Topics struct {
	Requested string
	Completed string
	Failed    string
}

// Dependencies of the service. Repo and Engine are required; the others
// disable their feature when nil.
type Dependencies struct {
	Repo      job.Repository
	Engine    Engine
	Publisher kafka.Publisher
	Artifacts ArtifactUploader
	Locks     redis.LockFactory
	Topics    Topics
	Metrics   *prometheus.DockingMetrics
	Logger    logging.Logger
	Now       func() time.Time
}

// Requested is the payload of a job.requested event.
type Requested struct {
	JobID   string      `json:"job_id"`
	Request job.Request `json:"request"`
}

type serviceImpl struct {
	deps   Dependencies
	logger logging.Logger
}

// NewService validates deps and fills defaults.
func NewService(deps Dependencies) (Service, error) {
	if deps.Repo == nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "job repository is required")
	}
	if deps.Engine == nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "docking engine is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = prometheus.NewNoopDockingMetrics()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Topics.Requested == "" {
		deps.Topics.Requested = kafka.TopicJobRequested
	}
	if deps.Topics.Completed == "" {
		deps.Topics.Completed = kafka.TopicJobCompleted
	}
	if deps.Topics.Failed == "" {
		deps.Topics.Failed = kafka.TopicJobFailed
	}
	return &serviceImpl{deps: deps, logger: deps.Logger.Named("jobs")}, nil
}

func (s *serviceImpl) Submit(ctx context.Context, req job.Request) (*job.Job, error) {
	if s.deps.Publisher == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "job queue is not configured")
	}
	j, err := job.New(req, s.deps.Now())
	if err != nil {
		return nil, err
	}
	if err := s.deps.Repo.Create(ctx, j); err != nil {
		return nil, err
	}

	payload := Requested{JobID: j.ID, Request: j.Request}
	if err := kafka.PublishEvent(ctx, s.deps.Publisher, s.deps.Topics.Requested, kafka.EventJobRequested, j.ID, payload); err != nil {
		s.fail(ctx, j, err)
		return j, err
	}
	s.logger.Info("job submitted", logging.String("job_id", j.ID), logging.String("engine", req.Engine))
	return j, nil
}

func (s *serviceImpl) Execute(ctx context.Context, req job.Request) (*job.Job, error) {
	j, err := job.New(req, s.deps.Now())
	if err != nil {
		return nil, err
	}
	if err := s.deps.Repo.Create(ctx, j); err != nil {
		return nil, err
	}
	if err := s.run(ctx, j); err != nil {
		if errors.IsCode(err, errors.ErrCodeJobLocked) {
			s.fail(ctx, j, err)
		}
		return j, err
	}
	return j, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (*job.Job, error) {
	return s.deps.Repo.Get(ctx, id)
}

func (s *serviceImpl) List(ctx context.Context, limit int) ([]*job.Job, error) {
	return s.deps.Repo.List(ctx, limit)
}

func (s *serviceImpl) ListPoses(ctx context.Context, id string) ([]job.Pose, error) {
	if _, err := s.deps.Repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.deps.Repo.ListPoses(ctx, id)
}

// HandleMessage runs a requested job. Undecodable messages and jobs already
// past the queued state are acknowledged without action. A locked run
// directory is returned as an error so the consumer retries later.
func (s *serviceImpl) HandleMessage(ctx context.Context, msg *kafka.Message) error {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		s.logger.Error("discarding undecodable message", logging.String("topic", msg.Topic), logging.Err(err))
		return nil
	}
	if env.EventType != kafka.EventJobRequested {
		return nil
	}
	var p Requested
	if err := env.DecodePayload(&p); err != nil {
		s.logger.Error("discarding malformed job request", logging.String("event_id", env.EventID), logging.Err(err))
		return nil
	}

	j, err := s.deps.Repo.Get(ctx, p.JobID)
	switch {
	case errors.IsCode(err, errors.ErrCodeJobNotFound):
		if verr := p.Request.Validate(); verr != nil {
			s.logger.Error("discarding invalid job request", logging.String("job_id", p.JobID), logging.Err(verr))
			return nil
		}
		j = &job.Job{ID: p.JobID, Status: job.StatusQueued, Request: p.Request, CreatedAt: env.Timestamp}
		if err := s.deps.Repo.Create(ctx, j); err != nil {
			return err
		}
	case err != nil:
		return err
	}
	if j.Status != job.StatusQueued {
		s.logger.Warn("job already handled", logging.String("job_id", j.ID), logging.String("status", string(j.Status)))
		return nil
	}

	err = s.run(ctx, j)
	if errors.IsCode(err, errors.ErrCodeJobLocked) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// run executes a queued job while holding the lock on its run directory.
func (s *serviceImpl) run(ctx context.Context, j *job.Job) error {
	logger := s.logger.With(logging.String("job_id", j.ID), logging.String("engine", j.Request.Engine))

	runDir, err := RunDirFor(j.Request)
	if err != nil {
		s.fail(ctx, j, err)
		return err
	}
	unlock, err := s.lock(ctx, runDir)
	if err != nil {
		return err
	}
	defer unlock()

	if err := j.Start(s.deps.Now()); err != nil {
		return err
	}
	j.RunDir = runDir
	if err := s.deps.Repo.Update(ctx, j); err != nil {
		return err
	}
	done := s.deps.Metrics.JobStarted(j.Request.Engine)
	logger.Info("job started", logging.String("run_dir", runDir))

	out, err := s.deps.Engine.Run(ctx, j.Request)
	if err != nil {
		done(prometheus.StatusFailure)
		s.fail(ctx, j, err)
		logger.Error("job failed", logging.Err(err))
		return err
	}
	applyOutcome(j, out)

	if s.deps.Artifacts != nil {
		arts, err := s.deps.Artifacts.UploadRun(ctx, j.ID, out.RunDir, out.Files)
		j.Artifacts = len(arts)
		if err != nil {
			logger.Warn("artifact upload incomplete", logging.Int("uploaded", len(arts)), logging.Err(err))
		}
	}
	if err := s.deps.Repo.SavePoses(ctx, j.ID, posesOf(j.ID, out.Rows)); err != nil {
		done(prometheus.StatusFailure)
		s.fail(ctx, j, err)
		return err
	}

	if err := j.Complete(s.deps.Now()); err != nil {
		return err
	}
	if err := s.deps.Repo.Update(ctx, j); err != nil {
		return err
	}
	done(prometheus.StatusSuccess)
	s.publish(ctx, s.deps.Topics.Completed, kafka.EventJobCompleted, j)
	logger.Info("job completed",
		logging.Int("poses", j.Poses),
		logging.Int("scored", j.Scored),
		logging.Int("artifacts", j.Artifacts))
	return nil
}

func (s *serviceImpl) lock(ctx context.Context, runDir string) (func(), error) {
	if s.deps.Locks == nil {
		return func() {}, nil
	}
	m := s.deps.Locks.NewMutex("run:"+runDir, redis.WithWatchdog(true))
	if err := m.Lock(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := m.Unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("run directory unlock failed", logging.String("run_dir", runDir), logging.Err(err))
		}
	}, nil
}

// fail records cause on j and publishes the failure, detached from ctx
// cancellation.
func (s *serviceImpl) fail(ctx context.Context, j *job.Job, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := j.Fail(s.deps.Now(), cause); err != nil {
		s.logger.Warn("cannot mark job failed", logging.String("job_id", j.ID), logging.Err(err))
		return
	}
	if err := s.deps.Repo.Update(ctx, j); err != nil {
		s.logger.Error("cannot persist failed job", logging.String("job_id", j.ID), logging.Err(err))
	}
	s.publish(ctx, s.deps.Topics.Failed, kafka.EventJobFailed, j)
}

func (s *serviceImpl) publish(ctx context.Context, topic, eventType string, j *job.Job) {
	if s.deps.Publisher == nil {
		return
	}
	if err := kafka.PublishEvent(ctx, s.deps.Publisher, topic, eventType, j.ID, j); err != nil {
		s.logger.Warn("job event not published", logging.String("job_id", j.ID), logging.String("event", eventType), logging.Err(err))
	}
}

func applyOutcome(j *job.Job, out *Outcome) {
	j.Label = out.Label
	if out.RunDir != "" {
		j.RunDir = out.RunDir
	}
	j.ReportPath = out.ReportPath
	j.SiteResidue = out.SiteResidue
	j.Compounds = out.Compounds
	j.Failed = out.Failed
	j.Poses = out.Poses
	j.Scored = out.Scored
	j.Dropped = out.Dropped
	j.Missing = out.Missing
}

func posesOf(jobID string, rows []pose.Row) []job.Pose {
	out := make([]job.Pose, 0, len(rows))
	for _, r := range rows {
		out = append(out, job.Pose{
			JobID:       jobID,
			Compound:    r.Ident,
			Rank:        r.Rank,
			Score:       r.Score,
			CNNScore:    r.CNNScore,
			CNNAffinity: r.CNNAffinity,
			Vinardo:     r.Vinardo,
			LigandFile:  r.LigandFile,
			ComplexFile: r.ComplexFile,
		})
	}
	return out
}

//Personal.AI order the ending
