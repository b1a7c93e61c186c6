package model

import "time"

// RunStatus represents the current state of a merge run. Statuses are
// persisted, so the values are stable identifiers.
type RunStatus string

const (
	RunStatusInit                RunStatus = "init"
	RunStatusExtracted           RunStatus = "extracted"
	RunStatusMergeAttempted      RunStatus = "merge_attempted"
	RunStatusCorrecting          RunStatus = "correcting"
	RunStatusReextracted         RunStatus = "reextracted"
	RunStatusFinalMergeAttempted RunStatus = "final_merge_attempted"
	RunStatusMerged              RunStatus = "merged"
	RunStatusConverted           RunStatus = "converted"
	RunStatusDone                RunStatus = "done"
	RunStatusFailed              RunStatus = "failed"
	RunStatusCancelled           RunStatus = "cancelled"
)

// Terminal reports whether a run in this status transitions no further.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusDone, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// Run represents a single execution of the merge engine for a project cohort.
type Run struct {
	ID        string     `json:"id"`
	Project   string     `json:"project"`
	Status    RunStatus  `json:"status"`
	Report    *RunReport `json:"report,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// StageStatus represents the current state of a pipeline stage.
type StageStatus string

const (
	StageStatusRunning  StageStatus = "running"
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
)

// Stage records one stage transition within a run.
type Stage struct {
	ID        string      `json:"id"`
	RunID     string      `json:"run_id"`
	Name      string      `json:"name"`
	Status    StageStatus `json:"status"`
	Detail    string      `json:"detail,omitempty"`
	Error     string      `json:"error,omitempty"`
	StartedAt time.Time   `json:"started_at"`
	Duration  int64       `json:"duration_ms"`
}

// RunReport is the durable account of a run: headline counts plus every
// stage transition, emitted whether the run succeeded or not.
type RunReport struct {
	RunID             string    `json:"run_id"`
	Project           string    `json:"project"`
	Status            RunStatus `json:"status"`
	BatchCount        int       `json:"batch_count"`
	SamplesRequested  int       `json:"samples_requested"`
	SamplesExcluded   int       `json:"samples_excluded,omitempty"`
	ConflictCount     int       `json:"conflict_snp_count"`
	CorrectionApplied bool      `json:"correction_applied"`
	FinalSampleCount  int       `json:"final_sample_count"`
	FinalVariantCount int       `json:"final_variant_count"`
	OutputPrefix      string    `json:"output_prefix"`
	VCFPath           string    `json:"vcf_path,omitempty"`
	DeliveredTo       string    `json:"delivered_to,omitempty"`
	Stages            []Stage   `json:"stages"`
	Error             string    `json:"error,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}
