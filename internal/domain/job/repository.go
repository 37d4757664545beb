package job

import "context"

// Repository persists jobs and their poses.
type Repository interface {
	// Create inserts a new job. An existing ID is a conflict.
	Create(ctx context.Context, j *Job) error
	// Update overwrites the mutable fields of an existing job.
	// Returns ErrCodeJobNotFound if the job does not exist.
	Update(ctx context.Context, j *Job) error
	// Get returns ErrCodeJobNotFound if the job does not exist.
	Get(ctx context.Context, id string) (*Job, error)
	// List returns the most recent jobs first.
	List(ctx context.Context, limit int) ([]*Job, error)
	// SavePoses replaces the poses stored for jobID.
	SavePoses(ctx context.Context, jobID string, poses []Pose) error
	// ListPoses returns poses ordered by compound then rank.
	ListPoses(ctx context.Context, jobID string) ([]Pose, error)
}

//Personal.AI order the ending
