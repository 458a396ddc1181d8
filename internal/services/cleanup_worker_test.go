package services

import (
	"context"
	"testing"
	"time"

	"birthday-memory-app/config"
	"birthday-memory-app/internal/repository/repotest"
	"birthday-memory-app/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) newWorker(cfg config.CleanupConfig) *CleanupWorker {
	return NewCleanupWorker(e.janitor, e.files, e.memories, cfg, logger.NewNop(), nil)
}

func (e *testEnv) age(t *testing.T, id string, d time.Duration) {
	t.Helper()
	f, err := e.files.GetByID(context.Background(), id)
	require.NoError(t, err)
	f.UploadDate = f.UploadDate.Add(-d)
	e.files.Put(f)
}

func TestSweepStaged(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	staged := stageImages(t, e, 3)
	require.Equal(t, 6, e.blobCount(t))

	_, err := e.gallery.Create(ctx, GalleryInput{Images: []ImageRef{{ID: staged[1].ID}, {ID: staged[2].ID}}})
	require.NoError(t, err)

	e.age(t, staged[0].ID, 48*time.Hour)
	e.age(t, staged[1].ID, 48*time.Hour)

	w := e.newWorker(e.cfg.Cleanup)
	n, err := w.SweepStaged(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, 2, e.files.Len())
	_, err = e.files.GetByID(ctx, staged[0].ID)
	assert.Error(t, err, "unreferenced old file is swept")
	_, err = e.files.GetByID(ctx, staged[1].ID)
	assert.NoError(t, err, "referenced file is kept")
	_, err = e.files.GetByID(ctx, staged[2].ID)
	assert.NoError(t, err, "fresh file is kept")
	assert.Equal(t, 4, e.blobCount(t))
}

func TestSweepStaged_DisabledWithoutTTL(t *testing.T) {
	e := newTestEnv(t)
	staged := stageImages(t, e, 1)
	e.age(t, staged[0].ID, 1000*time.Hour)

	cfg := e.cfg.Cleanup
	cfg.StagingTTL = 0
	n, err := e.newWorker(cfg).SweepStaged(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, e.files.Len())
}

func TestCleanupWorker_RetriesQueuedDeletes(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	res, err := e.uploads.Upload(ctx, []Part{newPart("a.mp3", "audio/mpeg", []byte("x"))}, "", true)
	require.NoError(t, err)

	e.blobs.failDelete = true
	out, err := e.memory.Delete(ctx, res.Memories[0].ID)
	require.NoError(t, err)
	require.Equal(t, CleanupDeferred, out.Cleanup)
	e.blobs.failDelete = false

	cfg := e.cfg.Cleanup
	cfg.Interval = 10 * time.Millisecond
	w := e.newWorker(cfg)
	w.Start()
	defer w.Stop()

	assert.Eventually(t, func() bool {
		n, err := e.queue.Len(ctx)
		return err == nil && n == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return e.blobCount(t) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRetryPending_GivesUpAfterMaxAttempts(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.blobs.failDelete = true

	require.Equal(t, CleanupDeferred, e.janitor.Remove(ctx, "image/a.png"))

	done, err := e.janitor.RetryPending(ctx, 10, 3)
	require.NoError(t, err)
	assert.Zero(t, done)
	n, _ := e.queue.Len(ctx)
	assert.EqualValues(t, 1, n, "second attempt is requeued")

	_, err = e.janitor.RetryPending(ctx, 10, 3)
	require.NoError(t, err)
	n, _ = e.queue.Len(ctx)
	assert.Zero(t, n, "third attempt drops the task")
}

// claimingRepo reports a file as unreferenced on the first check and
// referenced afterwards, as when a gallery is created mid-sweep.
type claimingRepo struct {
	*repotest.MemoryRepo
	checks map[string]int
}

func (r *claimingRepo) IsReferenced(ctx context.Context, id string) (bool, error) {
	r.checks[id]++
	return r.checks[id] > 1, nil
}

func TestSweepStaged_KeepsFileClaimedDuringSweep(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	staged := stageImages(t, e, 1)
	e.age(t, staged[0].ID, 48*time.Hour)

	repo := &claimingRepo{MemoryRepo: e.memories, checks: map[string]int{}}
	w := NewCleanupWorker(e.janitor, e.files, repo, e.cfg.Cleanup, logger.NewNop(), nil)

	n, err := w.SweepStaged(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, repo.checks[staged[0].ID])

	_, err = e.files.GetByID(ctx, staged[0].ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, e.blobCount(t))
}
