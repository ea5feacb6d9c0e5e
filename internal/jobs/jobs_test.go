package jobs_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/opportunity-sync/internal/domain"
	"github.com/straye-as/opportunity-sync/internal/jobs"
	"github.com/straye-as/opportunity-sync/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScheduler_AddJob(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob("b", "0 */10 * * * *", func() {}))
	require.NoError(t, s.AddJob("a", "@every 1h", func() {}))

	err := s.AddJob("a", "@every 1h", func() {})
	assert.ErrorContains(t, err, "already exists")

	err = s.AddJob("bad", "not a cron", func() {})
	assert.Error(t, err)

	assert.Equal(t, []string{"a", "b"}, s.JobNames())

	s.Start()
	<-s.Stop().Done()
}

func TestProgressPruneJob_Run(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-2 * time.Hour)
	recent := now.Add(-10 * time.Minute)

	syncs := progress.NewStore[domain.SyncOperation]()
	oldID, recentID, runningID := uuid.New(), uuid.New(), uuid.New()
	syncs.Create(oldID, domain.SyncOperation{ID: oldID, Status: domain.StatusCompleted, CompletedAt: &old})
	syncs.Create(recentID, domain.SyncOperation{ID: recentID, Status: domain.StatusCompleted, CompletedAt: &recent})
	syncs.Create(runningID, domain.SyncOperation{ID: runningID, Status: domain.ProcessingBatchStatus(1)})

	matches := progress.NewStore[domain.MatchingOperation]()
	failedID := uuid.New()
	matches.Create(failedID, domain.MatchingOperation{ID: failedID, Status: domain.StatusFailed, CompletedAt: &old})

	job := jobs.NewProgressPruneJob(map[string]jobs.Pruner{
		"sync":     syncs,
		"matching": matches,
	}, time.Hour, zap.NewNop()).WithClock(func() time.Time { return now })

	assert.Equal(t, 2, job.Run())

	_, ok := syncs.Get(oldID)
	assert.False(t, ok)
	_, ok = syncs.Get(recentID)
	assert.True(t, ok)
	_, ok = syncs.Get(runningID)
	assert.True(t, ok)
	assert.Equal(t, 0, matches.Len())
}

func TestProgressPruneJob_DisabledWithoutRetention(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	syncs := progress.NewStore[domain.SyncOperation]()
	id := uuid.New()
	syncs.Create(id, domain.SyncOperation{ID: id, Status: domain.StatusCompleted, CompletedAt: &old})

	job := jobs.NewProgressPruneJob(map[string]jobs.Pruner{"sync": syncs}, 0, zap.NewNop())

	assert.Equal(t, 0, job.Run())
	assert.Equal(t, 1, syncs.Len())
}
