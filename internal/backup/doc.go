// Package backup copies read-only snapshots of the license document to
// one or more sinks on a cron schedule.
//
// Sinks:
//
//	- FileSink: timestamped JSON files in a local directory, newest N kept
//	- S3Sink: objects under a prefix in an S3-compatible bucket
//
// A run takes one snapshot and writes it to every sink concurrently. A
// failing sink does not stop the others; the run reports every sink result.
// The scheduler never writes to the license store.
package backup
