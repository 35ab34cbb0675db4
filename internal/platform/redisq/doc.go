// Package redisq implements the broker-backed job queue: an asynq client and
// inspector for submission and status, an asynq worker that runs tasks, and a
// go-redis result backend holding terminal job records.
package redisq
