// Package middleware groups the HTTP middleware of the sync server.
//
//   - auth: rejects requests lacking the configured X-API-Key.
//   - rayid: tags each request with a ray ID, stored in locals and echoed in
//     the X-Ray-ID response header, so log lines of one request correlate.
//
// Register rayid first so every later log line carries the ID.
package middleware
