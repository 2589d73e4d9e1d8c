package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minisoc-systems/minisoc/internal/models"
)

func TestInMemoryEventStoreAppendAndGet(t *testing.T) {
	store := NewInMemoryEventStore()

	id, err := store.Append(context.Background(), &models.SecurityEvent{
		EventType: "FAILED_LOGIN", RawLog: "x", SourceHost: "h", Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	events, err := store.GetByIDs(context.Background(), []string{id, "missing"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
}

func TestInMemoryEventStoreSearchFilters(t *testing.T) {
	store := NewInMemoryEventStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seed := []models.SecurityEvent{
		{EventType: "FAILED_LOGIN", SourceIP: "10.0.0.5", Timestamp: base},
		{EventType: "FAILED_LOGIN", SourceIP: "", Timestamp: base.Add(time.Minute)},
		{EventType: "SUCCESSFUL_LOGIN", SourceIP: "10.0.0.5", Timestamp: base.Add(2 * time.Minute)},
		{EventType: "FAILED_LOGIN", SourceIP: "192.168.1.9", Timestamp: base.Add(-2 * time.Hour)},
	}
	for i := range seed {
		_, err := store.Append(context.Background(), &seed[i])
		require.NoError(t, err)
	}

	t.Run("by type with source required", func(t *testing.T) {
		found, err := store.Search(context.Background(), EventQuery{
			EventType:    "FAILED_LOGIN",
			Start:        base.Add(-3 * time.Hour),
			WithSourceIP: true,
		})
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("start bound is inclusive", func(t *testing.T) {
		found, err := store.Search(context.Background(), EventQuery{
			EventType: "FAILED_LOGIN",
			SourceIP:  "10.0.0.5",
			Start:     base,
		})
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})

	t.Run("ascending order", func(t *testing.T) {
		found, err := store.Search(context.Background(), EventQuery{
			Start:     base.Add(-3 * time.Hour),
			Ascending: true,
		})
		require.NoError(t, err)
		require.Len(t, found, 4)
		for i := 1; i < len(found); i++ {
			assert.False(t, found[i].Timestamp.Before(found[i-1].Timestamp))
		}
	})

	t.Run("limit", func(t *testing.T) {
		found, err := store.Search(context.Background(), EventQuery{
			Start: base.Add(-3 * time.Hour),
			Limit: 2,
		})
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})
}

func TestInMemoryAlertRepositoryDedup(t *testing.T) {
	repo := NewInMemoryAlertRepository()

	first := &models.Alert{
		AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 4, Status: models.StatusOpen,
	}
	require.NoError(t, repo.Create(context.Background(), first))

	dup := &models.Alert{
		AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 4, Status: models.StatusOpen,
	}
	assert.ErrorIs(t, repo.Create(context.Background(), dup), ErrDuplicateAlert)

	// A different source or type is unaffected.
	require.NoError(t, repo.Create(context.Background(), &models.Alert{
		AlertType: "SSH_BRUTE_FORCE", SourceIP: "192.168.1.9", Severity: 4, Status: models.StatusOpen,
	}))
	require.NoError(t, repo.Create(context.Background(), &models.Alert{
		AlertType: "PORT_SCAN", SourceIP: "10.0.0.5", Severity: 2, Status: models.StatusOpen,
	}))
}

func TestInMemoryAlertRepositoryDedupReleasedOnClose(t *testing.T) {
	repo := NewInMemoryAlertRepository()

	first := &models.Alert{
		AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 4, Status: models.StatusOpen,
	}
	require.NoError(t, repo.Create(context.Background(), first))

	_, err := repo.UpdateStatus(context.Background(), first.ID, models.StatusClosed)
	require.NoError(t, err)

	require.NoError(t, repo.Create(context.Background(), &models.Alert{
		AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 4, Status: models.StatusOpen,
	}))
}

func TestInMemoryAlertRepositoryConcurrentCreate(t *testing.T) {
	repo := NewInMemoryAlertRepository()

	// Many goroutines race to create the same open alert; exactly one wins.
	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(context.Background(), &models.Alert{
				AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 4, Status: models.StatusOpen,
			})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrDuplicateAlert)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)

	alerts, err := repo.List(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestInMemoryAlertRepositoryListNewestFirst(t *testing.T) {
	repo := NewInMemoryAlertRepository()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, ip := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		require.NoError(t, repo.Create(context.Background(), &models.Alert{
			AlertType: "SSH_BRUTE_FORCE",
			SourceIP:  ip,
			Severity:  4,
			Status:    models.StatusOpen,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	alerts, err := repo.List(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, "3.3.3.3", alerts[0].SourceIP)
	assert.Equal(t, "1.1.1.1", alerts[2].SourceIP)

	limited, err := repo.List(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestInMemoryAlertRepositoryUpdateStatus(t *testing.T) {
	repo := NewInMemoryAlertRepository()

	alert := &models.Alert{
		AlertType: "SSH_BRUTE_FORCE", SourceIP: "10.0.0.5", Severity: 4, Status: models.StatusOpen,
	}
	require.NoError(t, repo.Create(context.Background(), alert))

	updated, err := repo.UpdateStatus(context.Background(), alert.ID, models.StatusInvestigating)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInvestigating, updated.Status)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	_, err = repo.UpdateStatus(context.Background(), "missing", models.StatusClosed)
	assert.ErrorIs(t, err, ErrAlertNotFound)
}
