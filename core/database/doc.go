// Package database opens the MySQL connection backing the sync ledger.
//
// It wraps GORM with the MySQL dialector, applies connection pool limits and
// verifies the connection with a bounded ping. The connection is optional:
// callers log a warning and fall back to an in-memory ledger when it fails.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    logger.Warn("Optional database connection failed", zap.Error(err))
//	}
package database
