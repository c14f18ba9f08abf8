package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/kara-dl-go/internal/domain"
)

// mockRepo implements domain.DownloadRepository in memory
type mockRepo struct {
	mu      sync.Mutex
	items   map[string]*domain.DownloadItem
	seq     map[string]int
	next    int
	failErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		items: make(map[string]*domain.DownloadItem),
		seq:   make(map[string]int),
	}
}

func (m *mockRepo) CreateBatch(ctx context.Context, items []*domain.DownloadItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	for _, item := range items {
		if _, exists := m.items[item.UUID]; exists {
			return errors.New("UNIQUE constraint failed: download.pk_uuid")
		}
	}
	for _, item := range items {
		copied := *item
		m.items[item.UUID] = &copied
		m.seq[item.UUID] = m.next
		m.next++
	}
	return nil
}

func (m *mockRepo) FindByUUID(ctx context.Context, uuid string) (*domain.DownloadItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[uuid]
	if !ok {
		return nil, domain.NewNotFoundError("download", uuid)
	}
	copied := *item
	return &copied, nil
}

func (m *mockRepo) sorted(filter func(*domain.DownloadItem) bool) []*domain.DownloadItem {
	out := make([]*domain.DownloadItem, 0, len(m.items))
	for _, item := range m.items {
		if filter(item) {
			copied := *item
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return m.seq[out[i].UUID] > m.seq[out[j].UUID]
	})
	return out
}

func (m *mockRepo) FindAll(ctx context.Context) ([]*domain.DownloadItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	return m.sorted(func(*domain.DownloadItem) bool { return true }), nil
}

func (m *mockRepo) FindByStatus(ctx context.Context, status domain.DownloadStatus) ([]*domain.DownloadItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(item *domain.DownloadItem) bool { return item.Status == status }), nil
}

func (m *mockRepo) UpdateStatus(ctx context.Context, uuid string, status domain.DownloadStatus, from []domain.DownloadStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[uuid]
	if !ok {
		return 0, nil
	}
	for _, s := range from {
		if item.Status == s {
			item.Status = status
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockRepo) Delete(ctx context.Context, uuid string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[uuid]; !ok {
		return 0, nil
	}
	delete(m.items, uuid)
	return 1, nil
}

func (m *mockRepo) DeleteAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.items))
	m.items = make(map[string]*domain.DownloadItem)
	return n, nil
}

func (m *mockRepo) ResetRunning(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, item := range m.items {
		if item.Status == domain.StatusRunning {
			item.Status = domain.StatusPlanned
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) DeleteTerminal(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, item := range m.items {
		if item.Status.IsTerminal() {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) GetStats(ctx context.Context) (*domain.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.QueueStats{Total: int64(len(m.items))}
	for _, item := range m.items {
		switch item.Status {
		case domain.StatusPlanned:
			stats.Planned++
		case domain.StatusRunning:
			stats.Running++
		case domain.StatusDone:
			stats.Done++
		case domain.StatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (m *mockRepo) status(uuid string) domain.DownloadStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[uuid]; ok {
		return item.Status
	}
	return ""
}

func newTestQueueManager(repo domain.DownloadRepository) *QueueManager {
	config := &domain.QueueConfig{CheckInterval: 10 * time.Second}
	return NewQueueManager(repo, nil, config, NewEventHub(), nil, nil)
}

func songA() *domain.DownloadItem {
	return &domain.DownloadItem{UUID: "a", Name: "Song A", Size: 1000, Repository: "kara.moe", KID: "k1"}
}

func TestEnqueueAndComplete(t *testing.T) {
	repo := newMockRepo()
	qm := newTestQueueManager(repo)
	ctx := context.Background()

	require.NoError(t, qm.Enqueue(ctx, []*domain.DownloadItem{songA()}))

	pending, err := qm.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.StatusPlanned, pending[0].Status)
	assert.False(t, pending[0].StartedAt.IsZero())

	require.NoError(t, qm.UpdateStatus(ctx, "a", domain.StatusRunning))
	require.NoError(t, qm.UpdateStatus(ctx, "a", domain.StatusDone))

	pending, err = qm.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := qm.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.StatusDone, all[0].Status)
}

func TestEnqueue_ForcesPlannedStatus(t *testing.T) {
	repo := newMockRepo()
	qm := newTestQueueManager(repo)

	item := songA()
	item.Status = domain.StatusDone
	require.NoError(t, qm.Enqueue(context.Background(), []*domain.DownloadItem{item}))
	assert.Equal(t, domain.StatusPlanned, repo.status("a"))
}

func TestEnqueue_RejectsBadBatches(t *testing.T) {
	repo := newMockRepo()
	qm := newTestQueueManager(repo)
	ctx := context.Background()

	err := qm.Enqueue(ctx, []*domain.DownloadItem{{UUID: "", Name: "x"}})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	err = qm.Enqueue(ctx, []*domain.DownloadItem{{UUID: "a"}, {UUID: "a"}})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	all, _ := qm.ListAll(ctx)
	assert.Empty(t, all)

	assert.NoError(t, qm.Enqueue(ctx, nil))
}

func TestEnqueue_UniqueAcrossCalls(t *testing.T) {
	repo := newMockRepo()
	qm := newTestQueueManager(repo)
	ctx := context.Background()

	require.NoError(t, qm.Enqueue(ctx, []*domain.DownloadItem{{UUID: "a"}, {UUID: "b"}}))
	require.Error(t, qm.Enqueue(ctx, []*domain.DownloadItem{{UUID: "c"}, {UUID: "a"}}))

	all, err := qm.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	seen := map[string]bool{}
	for _, item := range all {
		assert.False(t, seen[item.UUID])
		seen[item.UUID] = true
	}
}

func TestListAll_MostRecentFirst(t *testing.T) {
	repo := newMockRepo()
	qm := newTestQueueManager(repo)
	ctx := context.Background()

	base := time.Now()
	require.NoError(t, qm.Enqueue(ctx, []*domain.DownloadItem{
		{UUID: "old", StartedAt: base.Add(-time.Hour)},
		{UUID: "new", StartedAt: base},
	}))

	all, err := qm.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "new", all[0].UUID)
	assert.Equal(t, "old", all[1].UUID)
}

func TestUpdateStatus_UnknownUUIDIsNoop(t *testing.T) {
	qm := newTestQueueManager(newMockRepo())
	assert.NoError(t, qm.UpdateStatus(context.Background(), "missing", domain.StatusDone))
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	repo := newMockRepo()
	qm := newTestQueueManager(repo)
	ctx := context.Background()
	require.NoError(t, qm.Enqueue(ctx, []*domain.DownloadItem{songA()}))

	err := qm.UpdateStatus(ctx, "a", domain.StatusDone)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	assert.Equal(t, domain.StatusPlanned, repo.status("a"))

	err = qm.UpdateStatus(ctx, "a", domain.DownloadStatus("DL_PAUSED"))
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestUpdateStatus_RequeueFromAnyStatus(t *testing.T) {
	repo := newMockRepo()
	qm := newTestQueueManager(repo)
	ctx := context.Background()
	require.NoError(t, qm.Enqueue(ctx, []*domain.DownloadItem{songA()}))

	require.NoError(t, qm.UpdateStatus(ctx, "a", domain.StatusRunning))
	require.NoError(t, qm.UpdateStatus(ctx, "a", domain.StatusFailed))

	item, err := qm.Requeue(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPlanned, item.Status)

	_, err = qm.Requeue(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestClaim_OnlyOneWinner(t *testing.T) {
	repo := newMockRepo()
	qm := newTestQueueManager(repo)
	ctx := context.Background()
	require.NoError(t, qm.Enqueue(ctx, []*domain.DownloadItem{songA()}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := qm.Claim(ctx, "a")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, domain.StatusRunning, repo.status("a"))

	ok, err := qm.Claim(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetOneAndDelete_NotFound(t *testing.T) {
	qm := newTestQueueManager(newMockRepo())
	ctx := context.Background()

	_, err := qm.GetOne(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = qm.Delete(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDelete_AnyStatus(t *testing.T) {
	repo := newMockRepo()
	qm := newTestQueueManager(repo)
	ctx := context.Background()
	require.NoError(t, qm.Enqueue(ctx, []*domain.DownloadItem{songA()}))
	require.NoError(t, qm.UpdateStatus(ctx, "a", domain.StatusRunning))

	require.NoError(t, qm.Delete(ctx, "a"))
	_, err := qm.GetOne(ctx, "a")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestEmptyAll(t *testing.T) {
	repo := newMockRepo()
	qm := newTestQueueManager(repo)
	ctx := context.Background()

	require.NoError(t, qm.Enqueue(ctx, []*domain.DownloadItem{{UUID: "a"}, {UUID: "b"}, {UUID: "c"}}))
	require.NoError(t, qm.EmptyAll(ctx))

	all, err := qm.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestInitRecovery_Idempotent(t *testing.T) {
	repo := newMockRepo()
	qm := newTestQueueManager(repo)
	ctx := context.Background()

	require.NoError(t, qm.Enqueue(ctx, []*domain.DownloadItem{{UUID: "p"}, {UUID: "r"}, {UUID: "d"}, {UUID: "f"}}))
	_, _ = qm.Claim(ctx, "r")
	_, _ = qm.Claim(ctx, "d")
	_, _ = qm.Claim(ctx, "f")
	require.NoError(t, qm.UpdateStatus(ctx, "d", domain.StatusDone))
	require.NoError(t, qm.UpdateStatus(ctx, "f", domain.StatusFailed))

	require.NoError(t, qm.InitRecovery(ctx))
	first, err := qm.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	for _, item := range first {
		assert.Equal(t, domain.StatusPlanned, item.Status)
	}

	require.NoError(t, qm.InitRecovery(ctx))
	second, err := qm.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStats(t *testing.T) {
	repo := newMockRepo()
	qm := newTestQueueManager(repo)
	ctx := context.Background()

	require.NoError(t, qm.Enqueue(ctx, []*domain.DownloadItem{{UUID: "a"}, {UUID: "b"}}))
	_, _ = qm.Claim(ctx, "a")

	stats, err := qm.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Planned)
	assert.Equal(t, int64(1), stats.Running)
}

func TestStoreErrorsPropagate(t *testing.T) {
	repo := newMockRepo()
	storeErr := errors.New("database is locked")
	repo.failErr = storeErr
	qm := newTestQueueManager(repo)

	err := qm.Enqueue(context.Background(), []*domain.DownloadItem{songA()})
	assert.True(t, errors.Is(err, storeErr))

	_, err = qm.ListAll(context.Background())
	assert.True(t, errors.Is(err, storeErr))
}

func TestQueueEventsPublished(t *testing.T) {
	repo := newMockRepo()
	hub := NewEventHub()
	qm := NewQueueManager(repo, nil, &domain.QueueConfig{}, hub, nil, nil)
	ctx := context.Background()

	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	require.NoError(t, qm.Enqueue(ctx, []*domain.DownloadItem{songA()}))
	require.NoError(t, qm.UpdateStatus(ctx, "a", domain.StatusRunning))
	require.NoError(t, qm.Delete(ctx, "a"))

	got := []domain.QueueEventType{(<-events).Type, (<-events).Type, (<-events).Type}
	assert.Equal(t, []domain.QueueEventType{domain.EventEnqueued, domain.EventStatusChanged, domain.EventDeleted}, got)
}

func TestStartStop(t *testing.T) {
	repo := newMockRepo()
	dm := NewDownloadManager(&fakeDownloader{}, &domain.DownloadConfig{ConcurrentLimit: 1}, zap.NewNop(), nil)
	qm := NewQueueManager(repo, dm, &domain.QueueConfig{CheckInterval: 20 * time.Millisecond}, nil, nil, nil)

	require.NoError(t, qm.Start(context.Background()))
	assert.True(t, qm.IsRunning())
	assert.Error(t, qm.Start(context.Background()))

	require.NoError(t, qm.Stop())
	assert.False(t, qm.IsRunning())
	assert.Error(t, qm.Stop())

	// Restartable after a stop
	require.NoError(t, qm.Start(context.Background()))
	require.NoError(t, qm.Stop())
}

func TestStart_WithoutDownloadManager(t *testing.T) {
	qm := newTestQueueManager(newMockRepo())
	assert.Error(t, qm.Start(context.Background()))
}
