package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaseflow/internal/common/logger"
	"leaseflow/internal/models"
)

func TestExpireStaleDrafts(t *testing.T) {
	repo := newFakeRepo()
	for _, id := range []string{"app-1", "app-2", "app-3"} {
		app := testApplication(models.StatusDraft)
		app.ID = id
		repo.apps[id] = app
	}
	repo.staleDrafts = []string{"app-1", "app-2", "app-3"}
	notifier := &recordingNotifier{}
	o := newTestOrchestrator(t, repo, notifier)

	expired, err := o.ExpireStaleDrafts(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 3, expired)

	for _, id := range []string{"app-1", "app-2", "app-3"} {
		stored := repo.apps[id]
		assert.Equal(t, models.StatusWithdrawn, stored.Status)
		require.NotNil(t, stored.ExpiredAt)

		last := stored.StatusHistory[len(stored.StatusHistory)-1]
		assert.Equal(t, SystemActorID, last.ChangedBy)
		assert.Equal(t, models.StatusWithdrawn, last.Status)
	}

	assert.Len(t, notifier.statusChanges, 3)
}

func TestExpireStaleDrafts_FailuresAreIndependent(t *testing.T) {
	repo := newFakeRepo()

	healthy := testApplication(models.StatusDraft)
	healthy.ID = "app-1"
	repo.apps["app-1"] = healthy

	// Already past draft; draft sweep listing is stale for this one and
	// the withdraw attempt hits the transition guard.
	approved := testApplication(models.StatusApproved)
	approved.ID = "app-2"
	repo.apps["app-2"] = approved

	// Deleted between listing and processing.
	repo.staleDrafts = []string{"app-1", "app-2", "app-missing"}

	o := newTestOrchestrator(t, repo, &recordingNotifier{})

	expired, err := o.ExpireStaleDrafts(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	assert.Equal(t, models.StatusWithdrawn, repo.apps["app-1"].Status)
	assert.Equal(t, models.StatusApproved, repo.apps["app-2"].Status)
}

func TestExpireStaleDrafts_NoCandidates(t *testing.T) {
	o := newTestOrchestrator(t, newFakeRepo(), &recordingNotifier{})

	expired, err := o.ExpireStaleDrafts(context.Background(), 30)
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestWithExpiryConcurrency(t *testing.T) {
	o := New(newFakeRepo(), &recordingNotifier{}, logger.NewTestLogger(t), WithExpiryConcurrency(8))
	assert.Equal(t, 8, o.expiryConcurrency)

	// Non-positive values keep the default.
	o = New(newFakeRepo(), &recordingNotifier{}, logger.NewTestLogger(t), WithExpiryConcurrency(0))
	assert.Equal(t, 4, o.expiryConcurrency)
}
