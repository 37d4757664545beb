package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/DockFlow/internal/application/jobs"
	"github.com/turtacn/DockFlow/internal/domain/job"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
)

// JobHandler exposes the docking job service over HTTP.
type JobHandler struct {
	svc    jobs.Service
	logger logging.Logger
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(svc jobs.Service, logger logging.Logger) *JobHandler {
	return &JobHandler{svc: svc, logger: logger}
}

// JobListResponse is the body of GET /api/v1/jobs.
type JobListResponse struct {
	Jobs  []*job.Job `json:"jobs"`
	Total int        `json:"total"`
}

// PoseListResponse is the body of GET /api/v1/jobs/:id/poses.
type PoseListResponse struct {
	JobID string     `json:"job_id"`
	Poses []job.Pose `json:"poses"`
	Total int        `json:"total"`
}

// Submit handles POST /api/v1/jobs and answers 202 with the queued job.
func (h *JobHandler) Submit(c *gin.Context) {
	var req job.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err.Error())
		return
	}

	j, err := h.svc.Submit(c.Request.Context(), req)
	if err != nil {
		h.logger.Warn("job submission rejected",
			logging.String("engine", req.Engine),
			logging.Err(err))
		writeAppError(c, err)
		return
	}

	c.Header("Location", "/api/v1/jobs/"+j.ID)
	c.JSON(http.StatusAccepted, j)
}

// Get handles GET /api/v1/jobs/:id.
func (h *JobHandler) Get(c *gin.Context) {
	j, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

// List handles GET /api/v1/jobs, newest first.
func (h *JobHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), parseLimit(c))
	if err != nil {
		writeAppError(c, err)
		return
	}
	if list == nil {
		list = []*job.Job{}
	}
	c.JSON(http.StatusOK, JobListResponse{Jobs: list, Total: len(list)})
}

// ListPoses handles GET /api/v1/jobs/:id/poses.
func (h *JobHandler) ListPoses(c *gin.Context) {
	id := c.Param("id")
	poses, err := h.svc.ListPoses(c.Request.Context(), id)
	if err != nil {
		writeAppError(c, err)
		return
	}
	if poses == nil {
		poses = []job.Pose{}
	}
	c.JSON(http.StatusOK, PoseListResponse{JobID: id, Poses: poses, Total: len(poses)})
}

//Personal.AI order the ending
