// Package sync exposes sync runs of one container over HTTP.
//
// The Service ties a container, the snapshot store and the ledger together:
// it plans runs with core/reconcile and executes them through a
// core/pipeline.Pipeline, acting as the plan's Mutator. Only one run executes
// at a time.
//
// # HTTP Endpoints
//
//   - GET  /sync/plan?direction=upload|download&purge=bool : planned actions
//   - POST /sync/upload?dry_run=bool&purge=bool           : push records to the store
//   - POST /sync/download?dry_run=bool&purge=bool         : pull records into the container
//   - GET  /sync/missing                                  : unresolved references of the last download
//   - GET  /sync/records?key=group:name                   : sync state of every record, or of one
package sync
