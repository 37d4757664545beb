package postgres

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/turtacn/DockFlow/internal/domain/job"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/pkg/errors"
)

const uniqueViolation = "23505"

// DBTX is the subset of *pgxpool.Pool used by JobRepository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// JobRepository implements job.Repository on the docking_jobs and
// docking_poses tables.
type JobRepository struct {
	db     DBTX
	logger logging.Logger
}

var _ job.Repository = (*JobRepository)(nil)

// NewJobRepository returns a repository backed by db.
func NewJobRepository(db DBTX, logger logging.Logger) *JobRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &JobRepository{db: db, logger: logger.Named("job_repo")}
}

const jobColumns = `id, engine, status, request, label, run_dir, report_path, site_residue,
	compounds, failed, poses, scored, dropped, missing, artifacts, error,
	created_at, started_at, finished_at`

// Create inserts j.
func (r *JobRepository) Create(ctx context.Context, j *job.Job) error {
	req, err := json.Marshal(j.Request)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshal job request")
	}
	_, err = r.db.Exec(ctx, `INSERT INTO docking_jobs (`+jobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		j.ID, j.Request.Engine, string(j.Status), req, j.Label, j.RunDir, j.ReportPath, j.SiteResidue,
		j.Compounds, j.Failed, j.Poses, j.Scored, j.Dropped, j.Missing, j.Artifacts, j.Error,
		j.CreatedAt, j.StartedAt, j.FinishedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errors.Wrap(err, errors.ErrCodeConflict, "job already exists").WithDetail(j.ID)
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert job")
	}
	r.logger.Debug("job created", logging.String("job_id", j.ID))
	return nil
}

// Update overwrites status, run results and timestamps of j.
func (r *JobRepository) Update(ctx context.Context, j *job.Job) error {
	tag, err := r.db.Exec(ctx, `UPDATE docking_jobs SET
		status = $2, label = $3, run_dir = $4, report_path = $5, site_residue = $6,
		compounds = $7, failed = $8, poses = $9, scored = $10, dropped = $11,
		missing = $12, artifacts = $13, error = $14, started_at = $15, finished_at = $16
		WHERE id = $1`,
		j.ID, string(j.Status), j.Label, j.RunDir, j.ReportPath, j.SiteResidue,
		j.Compounds, j.Failed, j.Poses, j.Scored, j.Dropped,
		j.Missing, j.Artifacts, j.Error, j.StartedAt, j.FinishedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update job")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeJobNotFound, "docking job not found").WithDetail(j.ID)
	}
	return nil
}

// Get loads a job by ID.
func (r *JobRepository) Get(ctx context.Context, id string) (*job.Job, error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM docking_jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeJobNotFound, "docking job not found").WithDetail(id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load job")
	}
	return j, nil
}

// List returns up to limit jobs, newest first.
func (r *JobRepository) List(ctx context.Context, limit int) ([]*job.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT `+jobColumns+` FROM docking_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list jobs")
	}
	defer rows.Close()

	var out []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan job")
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list jobs")
	}
	return out, nil
}

// SavePoses replaces the poses of jobID using COPY inside a transaction.
func (r *JobRepository) SavePoses(ctx context.Context, jobID string, poses []job.Pose) error {
	return WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM docking_poses WHERE job_id = $1`, jobID); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to clear poses")
		}
		if len(poses) == 0 {
			return nil
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"docking_poses"},
			[]string{"job_id", "compound", "rank", "score", "cnn_score", "cnn_affinity", "vinardo", "lig_sdf", "comb_pdb"},
			pgx.CopyFromSlice(len(poses), func(i int) ([]any, error) {
				p := poses[i]
				return []any{jobID, p.Compound, p.Rank, p.Score, p.CNNScore, p.CNNAffinity, p.Vinardo, p.LigandFile, p.ComplexFile}, nil
			}))
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to copy poses")
		}
		r.logger.Debug("poses saved", logging.String("job_id", jobID), logging.Int("count", len(poses)))
		return nil
	})
}

// ListPoses returns the poses of jobID ordered by compound and rank.
func (r *JobRepository) ListPoses(ctx context.Context, jobID string) ([]job.Pose, error) {
	rows, err := r.db.Query(ctx, `SELECT job_id, compound, rank, score, cnn_score, cnn_affinity, vinardo, lig_sdf, comb_pdb
		FROM docking_poses WHERE job_id = $1 ORDER BY compound, rank`, jobID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list poses")
	}
	defer rows.Close()

	var out []job.Pose
	for rows.Next() {
		var p job.Pose
		if err := rows.Scan(&p.JobID, &p.Compound, &p.Rank, &p.Score, &p.CNNScore, &p.CNNAffinity,
			&p.Vinardo, &p.LigandFile, &p.ComplexFile); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan pose")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list poses")
	}
	return out, nil
}

func scanJob(row pgx.Row) (*job.Job, error) {
	var (
		j       job.Job
		engine  string
		status  string
		request []byte
		started *time.Time
		ended   *time.Time
	)
	err := row.Scan(&j.ID, &engine, &status, &request, &j.Label, &j.RunDir, &j.ReportPath, &j.SiteResidue,
		&j.Compounds, &j.Failed, &j.Poses, &j.Scored, &j.Dropped, &j.Missing, &j.Artifacts, &j.Error,
		&j.CreatedAt, &started, &ended)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(request, &j.Request); err != nil {
		return nil, err
	}
	j.Request.Engine = engine
	j.Status = job.Status(status)
	j.StartedAt = started
	j.FinishedAt = ended
	return &j, nil
}

//Personal.AI order the ending
