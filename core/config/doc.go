// Package config loads the application configuration.
//
// Values come from struct tag defaults, a .env file and the environment, in
// increasing priority. Nested keys map to upper-case variables joined by
// underscores, so sync.workers is read from SYNC_WORKERS.
//
// # Configuration Structure
//
//   - Server: HTTP port, API key and timeouts
//   - Storage: S3/MinIO credentials and the snapshot bucket
//   - Database: optional MySQL ledger
//   - Log: logging level and format
//   - Sync: container paths, layouts, namespace and pipeline tuning
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.Container)
package config
