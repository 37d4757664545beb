package prometheus

import "time"

// Tool invocation outcomes used as the "status" label.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusTimeout = "timeout"
)

// Pose outcomes used as the "outcome" label.
const (
	PoseAccepted  = "accepted"
	PoseFiltered  = "filtered"
	PoseScored    = "scored"
	PoseDropped   = "dropped"
	PoseCacheHit  = "cache_hit"
	PoseCacheMiss = "cache_miss"
)

// DefaultToolDurationBuckets spans quick conversions up to multi-hour docking runs.
var DefaultToolDurationBuckets = []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600, 10800}

// DockingMetrics holds every metric emitted by the docking pipeline.
type DockingMetrics struct {
	ToolInvocations   CounterVec
	ToolDuration      HistogramVec
	CompoundsParsed   CounterVec
	Poses             CounterVec
	JobsTotal         CounterVec
	ActiveJobs        GaugeVec
	StageDuration     HistogramVec
	ArtifactsUploaded CounterVec
}

// NewDockingMetrics registers the docking metrics on c.
func NewDockingMetrics(c MetricsCollector) *DockingMetrics {
	return &DockingMetrics{
		ToolInvocations: c.RegisterCounter("tool_invocations_total",
			"External tool invocations by tool and status.", "tool", "status"),
		ToolDuration: c.RegisterHistogram("tool_duration_seconds",
			"Wall-clock duration of external tool invocations.", DefaultToolDurationBuckets, "tool"),
		CompoundsParsed: c.RegisterCounter("compounds_parsed_total",
			"Compound list lines by result (valid, swapped, failed).", "result"),
		Poses: c.RegisterCounter("poses_total",
			"Pose candidates by engine and outcome.", "engine", "outcome"),
		JobsTotal: c.RegisterCounter("jobs_total",
			"Docking jobs by engine and final status.", "engine", "status"),
		ActiveJobs: c.RegisterGauge("jobs_active",
			"Docking jobs currently executing.", "engine"),
		StageDuration: c.RegisterHistogram("stage_duration_seconds",
			"Duration of pipeline stages.", DefaultToolDurationBuckets, "engine", "stage"),
		ArtifactsUploaded: c.RegisterCounter("artifacts_uploaded_total",
			"Run artifacts uploaded to object storage by kind.", "kind"),
	}
}

// NewNoopDockingMetrics returns metrics that discard every observation.
func NewNoopDockingMetrics() *DockingMetrics {
	return &DockingMetrics{
		ToolInvocations:   noopCounterVec{},
		ToolDuration:      noopHistogramVec{},
		CompoundsParsed:   noopCounterVec{},
		Poses:             noopCounterVec{},
		JobsTotal:         noopCounterVec{},
		ActiveJobs:        noopGaugeVec{},
		StageDuration:     noopHistogramVec{},
		ArtifactsUploaded: noopCounterVec{},
	}
}

// RecordTool records one external tool invocation.
func (m *DockingMetrics) RecordTool(tool, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ToolInvocations.WithLabelValues(tool, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordCompounds records the outcome counts of a compound list parse.
func (m *DockingMetrics) RecordCompounds(valid, swapped, failed int) {
	if m == nil {
		return
	}
	m.CompoundsParsed.WithLabelValues("valid").Add(float64(valid))
	m.CompoundsParsed.WithLabelValues("swapped").Add(float64(swapped))
	m.CompoundsParsed.WithLabelValues("failed").Add(float64(failed))
}

// RecordPoses adds n poses with the given outcome.
func (m *DockingMetrics) RecordPoses(engine, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Poses.WithLabelValues(engine, outcome).Add(float64(n))
}

// RecordStage records the duration of one pipeline stage.
func (m *DockingMetrics) RecordStage(engine, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(engine, stage).Observe(d.Seconds())
}

// JobStarted increments the active job gauge and returns a func that records
// the final status and decrements it.
func (m *DockingMetrics) JobStarted(engine string) func(status string) {
	if m == nil {
		return func(string) {}
	}
	m.ActiveJobs.WithLabelValues(engine).Inc()
	return func(status string) {
		m.ActiveJobs.WithLabelValues(engine).Dec()
		m.JobsTotal.WithLabelValues(engine, status).Inc()
	}
}

// RecordArtifact counts one uploaded artifact.
func (m *DockingMetrics) RecordArtifact(kind string) {
	if m == nil {
		return
	}
	m.ArtifactsUploaded.WithLabelValues(kind).Inc()
}

//Personal.AI order the ending
