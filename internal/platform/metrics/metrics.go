package metrics

import (
	"sync/atomic"
	"time"
)

// Collector is a process-local counter set exposed on the admin status
// endpoint. Counters reset on restart.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	entriesRecorded uint64
	exitsRecorded   uint64
	entryConflicts  uint64
	backupsRun      uint64
	backupFailures  uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordEntry()         { atomic.AddUint64(&c.entriesRecorded, 1) }
func (c *Collector) RecordExit()          { atomic.AddUint64(&c.exitsRecorded, 1) }
func (c *Collector) RecordEntryConflict() { atomic.AddUint64(&c.entryConflicts, 1) }

func (c *Collector) RecordBackup(failed bool) {
	atomic.AddUint64(&c.backupsRun, 1)
	if failed {
		atomic.AddUint64(&c.backupFailures, 1)
	}
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      atomic.LoadUint64(&c.errorRequests),
		"rateLimitedTotal": atomic.LoadUint64(&c.rateLimited),
		"avgDurationMs":    avg,
		"entriesTotal":     atomic.LoadUint64(&c.entriesRecorded),
		"exitsTotal":       atomic.LoadUint64(&c.exitsRecorded),
		"conflictsTotal":   atomic.LoadUint64(&c.entryConflicts),
		"backupsTotal":     atomic.LoadUint64(&c.backupsRun),
		"backupFailures":   atomic.LoadUint64(&c.backupFailures),
	}
}
