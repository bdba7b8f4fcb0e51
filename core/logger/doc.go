// Package logger builds the zap logger used across tag-sync.
//
// Level is one of debug, info, warn or error. Format json suits servers;
// console suits the CLI. Debug selects zap's development preset with ISO8601
// timestamps.
//
// WithRayID scopes a logger to one HTTP request using the ray ID stored by
// core/middleware/rayid. WithContainer scopes it to one container, so the log
// lines of a sync run carry the container name.
//
//	l, err := logger.New(&cfg.Log)
//	l = logger.WithContainer(l, "m10")
//	l.Info("Sync batch finished", zap.Int("completed", n))
package logger
