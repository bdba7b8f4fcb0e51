package pipeline

import "runtime"

// Config tunes a pipeline run.
type Config struct {
	// Namespace prefixes store keys. Empty means no namespace.
	Namespace string
	// UseTimestamps stamps the ledger after every transferred record.
	UseTimestamps bool
	// Workers is the number of concurrent workers. Zero means one per CPU.
	Workers int
	// QueueFactor sizes the download queue as QueueFactor x Workers.
	QueueFactor int
	// BatchSize is how many queued records the consumer processes per fan-out.
	// Zero means Workers.
	BatchSize int
	// SkipUnchanged compares downloads against the current record and writes
	// only the fields that differ.
	SkipUnchanged bool
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.QueueFactor <= 0 {
		c.QueueFactor = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = c.Workers
	}
	return c
}
