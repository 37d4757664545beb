package jobs

import (
	"context"
	"sort"
	"sync"

	"github.com/turtacn/DockFlow/internal/domain/job"
	"github.com/turtacn/DockFlow/pkg/errors"
)

// MemoryRepository keeps jobs in process memory. It backs the service when
// no database is configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	jobs  map[string]job.Job
	poses map[string][]job.Pose
}

var _ job.Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{jobs: make(map[string]job.Job), poses: make(map[string][]job.Pose)}
}

func (r *MemoryRepository) Create(_ context.Context, j *job.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[j.ID]; ok {
		return errors.New(errors.ErrCodeConflict, "job already exists").WithDetail(j.ID)
	}
	r.jobs[j.ID] = *j
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, j *job.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[j.ID]; !ok {
		return errors.New(errors.ErrCodeJobNotFound, "docking job not found").WithDetail(j.ID)
	}
	r.jobs[j.ID] = *j
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*job.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeJobNotFound, "docking job not found").WithDetail(id)
	}
	return &j, nil
}

func (r *MemoryRepository) List(_ context.Context, limit int) ([]*job.Job, error) {
	r.mu.RLock()
	out := make([]*job.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, &j)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) SavePoses(_ context.Context, jobID string, poses []job.Pose) error {
	cp := make([]job.Pose, len(poses))
	for i, p := range poses {
		p.JobID = jobID
		cp[i] = p
	}
	sort.SliceStable(cp, func(a, b int) bool {
		if cp[a].Compound != cp[b].Compound {
			return cp[a].Compound < cp[b].Compound
		}
		return cp[a].Rank < cp[b].Rank
	})
	r.mu.Lock()
	r.poses[jobID] = cp
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) ListPoses(_ context.Context, jobID string) ([]job.Pose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]job.Pose(nil), r.poses[jobID]...), nil
}

//Personal.AI order the ending
