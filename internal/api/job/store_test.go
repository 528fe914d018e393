// internal/api/job/store_test.go
package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/polydash/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(100, time.Hour)

	job := store.Create("snapshot")
	require.NotEmpty(t, job.ID)
	assert.Equal(t, StatusPending, job.Status)

	retrieved, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, retrieved.ID)
}

func TestStore_Update(t *testing.T) {
	store := NewStore(100, time.Hour)
	job := store.Create("snapshot")

	require.NoError(t, store.Update(job.ID, func(j *Job) {
		j.Status = StatusRunning
	}))

	retrieved, _ := store.Get(job.ID)
	assert.Equal(t, StatusRunning, retrieved.Status)

	assert.ErrorIs(t, store.Update("nonexistent", func(*Job) {}), core.ErrNoData)
}

func TestStore_MaxSize(t *testing.T) {
	store := NewStore(2, time.Hour)

	job1 := store.Create("snapshot")
	store.Create("snapshot")
	store.Create("snapshot") // evicts job1

	_, err := store.Get(job1.ID)
	assert.ErrorIs(t, err, core.ErrNoData)
}

func TestStore_TTLExpiresFinishedJobs(t *testing.T) {
	store := NewStore(10, time.Minute)
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	done := store.Create("snapshot")
	store.Update(done.ID, func(j *Job) { j.Status = StatusComplete })
	running := store.Create("snapshot")
	store.Update(running.ID, func(j *Job) { j.Status = StatusRunning })

	now = now.Add(2 * time.Minute)

	_, err := store.Get(done.ID)
	assert.ErrorIs(t, err, core.ErrNoData)
	_, err = store.Get(running.ID)
	assert.NoError(t, err, "unfinished jobs never expire")

	store.Create("snapshot")
	assert.Len(t, store.List(), 2)
}

func TestStore_List(t *testing.T) {
	store := NewStore(100, time.Hour)
	first := store.Create("snapshot")
	time.Sleep(time.Millisecond)
	second := store.Create("export")

	jobs := store.List()
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
	assert.Equal(t, first.ID, jobs[1].ID)
}

func TestStore_Run(t *testing.T) {
	store := NewStore(10, time.Hour)

	ok := store.Run(context.Background(), "snapshot", func(ctx context.Context) (any, error) {
		return []string{"exports/a.json"}, nil
	})
	failed := store.Run(context.Background(), "snapshot", func(ctx context.Context) (any, error) {
		return nil, core.WrapError(core.ErrArchiveFailed, errors.New("disk full"))
	})
	plain := store.Run(context.Background(), "snapshot", func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	store.Wait()

	got, err := store.Get(ok.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, []string{"exports/a.json"}, got.Result)

	got, _ = store.Get(failed.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "ARCHIVE_FAILED", got.Error.Code)

	got, _ = store.Get(plain.ID)
	assert.Equal(t, "EXPORT_FAILED", got.Error.Code)
}
