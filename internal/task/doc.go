// Package task runs background jobs in-process.
//
// A submitted job is persisted as PENDING in a JobStore, placed on a bounded
// TaskQueue and executed by a WorkerPool. The TaskRunner records every status
// change through the store, which enforces the job state machine. Jobs left
// over from a previous process are recovered when the runner starts.
package task
