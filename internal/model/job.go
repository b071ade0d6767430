package model

import "time"

// JobAction is what a bulk distribution job does to each customer in the segment.
type JobAction string

const (
	ActionAssign JobAction = "assign"
	ActionRevoke JobAction = "revoke"
)

// JobStatus is the backend-owned lifecycle state of a bulk job.
// The lifecycle is strictly ordered: pending -> running -> terminal.
// A terminal job never re-enters pending/running; retry allocates a new job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status ends the job's lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobCancelled
}

// InFlight reports whether the job may still be cancelled.
func (s JobStatus) InFlight() bool {
	return s == JobPending || s == JobRunning
}

// SegmentFilters narrow which customers a bulk job touches.
type SegmentFilters struct {
	RequireMarketingOptIn bool `json:"require_marketing_opt_in"`
	RequireEmailVerified  bool `json:"require_email_verified"`
}

// BucketPartition restricts a job to a deterministic pseudo-random subset of
// the matching segment. Two jobs sharing a seed with complementary indices
// split the segment into disjoint halves, which is the basis of A/B runs.
type BucketPartition struct {
	Total int    `json:"bucket_total" validate:"gte=2"`
	Index int    `json:"bucket_index" validate:"gte=0"`
	Seed  string `json:"bucket_seed" validate:"required,max=128"`
}

// JobCounters are the backend's progress counters for a bulk job.
// Processed never exceeds TotalCandidates.
type JobCounters struct {
	TotalCandidates int `json:"total_candidates"`
	Processed       int `json:"processed"`
	Created         int `json:"created"`
	Restored        int `json:"restored"`
	AlreadyActive   int `json:"already_active"`
	Revoked         int `json:"revoked"`
	AlreadyRevoked  int `json:"already_revoked"`
	NotAssigned     int `json:"not_assigned"`
}

// BulkJob is a snapshot of a server-executed distribution job. The gateway
// only observes it and requests transitions; it never mutates one locally.
type BulkJob struct {
	ID         string           `json:"id"`
	CouponID   string           `json:"coupon_id"`
	Action     JobAction        `json:"action"`
	Status     JobStatus        `json:"status"`
	Filters    SegmentFilters   `json:"filters"`
	Bucket     *BucketPartition `json:"bucket,omitempty"`
	Counters   JobCounters      `json:"counters"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// CreateJobRequest is the payload for starting a bulk job on a coupon.
type CreateJobRequest struct {
	Action  JobAction        `json:"action" validate:"required,oneof=assign revoke"`
	Filters SegmentFilters   `json:"filters"`
	Bucket  *BucketPartition `json:"bucket,omitempty"`
}

// SegmentPreview is the dry-run answer for a would-be job: how many customers
// match and a small sample of their emails, without creating anything.
type SegmentPreview struct {
	TotalCandidates int      `json:"total_candidates"`
	SampleEmails    []string `json:"sample_emails"`
}

// EmailBulkResult aggregates the outcome of a direct (non-job) assign or
// revoke against an explicit email list, the CSV upload path.
type EmailBulkResult struct {
	Created        int `json:"created"`
	Restored       int `json:"restored"`
	AlreadyActive  int `json:"already_active"`
	Revoked        int `json:"revoked"`
	AlreadyRevoked int `json:"already_revoked"`
	NotAssigned    int `json:"not_assigned"`
	Unknown        int `json:"unknown"`
}
