package jobs

import (
	"time"

	"go.uber.org/zap"
)

// ProgressPruneJobName is the name of the progress retention job
const ProgressPruneJobName = "progress_prune"

// Pruner drops finished operations that completed before cutoff
type Pruner interface {
	Prune(cutoff time.Time) int
}

// ProgressPruneJob evicts finished matching and sync operations once they
// are older than the retention window. Running operations are never touched.
type ProgressPruneJob struct {
	stores    map[string]Pruner
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewProgressPruneJob creates a prune job over the named stores
func NewProgressPruneJob(stores map[string]Pruner, retention time.Duration, logger *zap.Logger) *ProgressPruneJob {
	return &ProgressPruneJob{
		stores:    stores,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock replaces the time source
func (j *ProgressPruneJob) WithClock(now func() time.Time) *ProgressPruneJob {
	j.now = now
	return j
}

// Run prunes every store and returns the total number of evicted operations.
func (j *ProgressPruneJob) Run() int {
	if j.retention <= 0 {
		return 0
	}
	cutoff := j.now().Add(-j.retention)

	total := 0
	for name, store := range j.stores {
		n := store.Prune(cutoff)
		total += n
		if n > 0 {
			j.logger.Info("pruned finished operations",
				zap.String("store", name),
				zap.Int("removed", n),
				zap.Time("cutoff", cutoff))
		}
	}
	return total
}
