// Package domain contains the core business entities of the service: todo
// records, the immutable snapshots captured when an export is submitted, and
// the background job that turns those snapshots into a calendar document.
// It has no knowledge of storage, transport or queueing.
package domain
