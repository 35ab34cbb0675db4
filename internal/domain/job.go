package domain

import (
	"fmt"
	"time"
)

// JobStatus represents the execution state of a background job.
// The set of values is closed; switches over JobStatus should be exhaustive.
type JobStatus uint8

// Possible job status values, in lifecycle order.
const (
	// JobStatusUnknown is reported for ids the queue does not know. It is never stored.
	JobStatusUnknown JobStatus = iota
	JobStatusPending
	JobStatusRunning
	JobStatusSuccess
	JobStatusFailure
)

// String returns the wire name of the status.
func (s JobStatus) String() string {
	switch s {
	case JobStatusUnknown:
		return "UNKNOWN"
	case JobStatusPending:
		return "PENDING"
	case JobStatusRunning:
		return "RUNNING"
	case JobStatusSuccess:
		return "SUCCESS"
	case JobStatusFailure:
		return "FAILURE"
	default:
		return fmt.Sprintf("JobStatus(%d)", uint8(s))
	}
}

// ParseJobStatus converts a wire name back into a JobStatus.
func ParseJobStatus(s string) (JobStatus, error) {
	switch s {
	case "UNKNOWN":
		return JobStatusUnknown, nil
	case "PENDING":
		return JobStatusPending, nil
	case "RUNNING":
		return JobStatusRunning, nil
	case "SUCCESS":
		return JobStatusSuccess, nil
	case "FAILURE":
		return JobStatusFailure, nil
	default:
		return JobStatusUnknown, fmt.Errorf("%w: %q", ErrInvalidJobStatus, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s JobStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *JobStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseJobStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsTerminal reports whether no further transitions can happen.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailure
}

// Rank orders statuses along the lifecycle. Both terminal states share a rank.
func (s JobStatus) Rank() int {
	switch s {
	case JobStatusUnknown:
		return 0
	case JobStatusPending:
		return 1
	case JobStatusRunning:
		return 2
	case JobStatusSuccess, JobStatusFailure:
		return 3
	default:
		return 0
	}
}

// CanTransitionTo reports whether a job in status s may move to next.
// A job that never started may still fail (rejected by the queue or lost
// before a worker picked it up).
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusRunning || next == JobStatusFailure
	case JobStatusRunning:
		return next == JobStatusSuccess || next == JobStatusFailure
	case JobStatusUnknown, JobStatusSuccess, JobStatusFailure:
		return false
	default:
		return false
	}
}

// Job is one asynchronous request to produce an artifact from a payload.
// Output is set only in JobStatusSuccess and Error only in JobStatusFailure.
type Job struct {
	ID         string
	Type       string
	Payload    []byte
	Status     JobStatus
	Output     string
	Error      string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// NewJob creates a pending job. The payload is copied.
func NewJob(id, jobType string, payload []byte) *Job {
	p := make([]byte, len(payload))
	copy(p, payload)
	return &Job{
		ID:        id,
		Type:      jobType,
		Payload:   p,
		Status:    JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// Start moves the job to running.
func (j *Job) Start(at time.Time) error {
	if err := j.transition(JobStatusRunning); err != nil {
		return err
	}
	at = at.UTC()
	j.StartedAt = &at
	return nil
}

// Succeed records the output and moves the job to success.
func (j *Job) Succeed(output string, at time.Time) error {
	if err := j.transition(JobStatusSuccess); err != nil {
		return err
	}
	at = at.UTC()
	j.Output = output
	j.FinishedAt = &at
	return nil
}

// Fail records the error message and moves the job to failure.
func (j *Job) Fail(msg string, at time.Time) error {
	if err := j.transition(JobStatusFailure); err != nil {
		return err
	}
	at = at.UTC()
	j.Error = msg
	j.FinishedAt = &at
	return nil
}

// Info returns the caller-facing view of the job.
func (j *Job) Info() *JobInfo {
	return &JobInfo{ID: j.ID, Status: j.Status, Error: j.Error}
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	c := *j
	c.Payload = make([]byte, len(j.Payload))
	copy(c.Payload, j.Payload)
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

func (j *Job) transition(next JobStatus) error {
	if !j.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidJobTransition, j.Status, next)
	}
	j.Status = next
	return nil
}

// JobInfo is a point-in-time view of a job as reported by a queue.
// Error is only populated for failed jobs, and only when the backend keeps it.
type JobInfo struct {
	ID     string    `json:"job_id"`
	Status JobStatus `json:"status"`
	Error  string    `json:"error,omitempty"`
}
