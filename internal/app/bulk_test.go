package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/kara-dl-go/internal/domain"
)

type fakeCatalog struct {
	candidates []domain.Candidate
	calls      []int
	err        error
}

func (f *fakeCatalog) SearchKaras(ctx context.Context, repository string, from, size int) (*domain.CandidatePage, error) {
	f.calls = append(f.calls, from)
	if f.err != nil {
		return nil, f.err
	}
	page := &domain.CandidatePage{Total: len(f.candidates)}
	if from < len(f.candidates) {
		end := from + size
		if end > len(f.candidates) {
			end = len(f.candidates)
		}
		page.Candidates = f.candidates[from:end]
	}
	return page, nil
}

type fakeMediaStore map[string]int64

func (f fakeMediaStore) Stat(mediafile string) (int64, bool) {
	size, ok := f[mediafile]
	return size, ok
}

func catalogOf(n int) []domain.Candidate {
	out := make([]domain.Candidate, n)
	for i := range out {
		out[i] = domain.Candidate{
			KID:        fmt.Sprintf("kid-%d", i),
			Title:      fmt.Sprintf("Song %d", i),
			Duration:   90,
			KaraFile:   fmt.Sprintf("ENG - Song %d.kara.json", i),
			MediaFile:  fmt.Sprintf("ENG - Song %d.mp4", i),
			MediaSize:  1000,
			Repository: "kara.moe",
		}
	}
	return out
}

func newTestBulk(t *testing.T, catalog *fakeCatalog, media fakeMediaStore, pageSize int) (*BulkDownloader, *QueueManager, *BlacklistService, *mockRepo) {
	t.Helper()
	repo := newMockRepo()
	qm := newTestQueueManager(repo)
	svc := NewBlacklistService(newMockBlacklistRepo(), nil)
	return NewBulkDownloader(catalog, media, qm, svc, pageSize, nil, zap.NewNop()), qm, svc, repo
}

func TestBulkRun_MissingPagesThroughCatalog(t *testing.T) {
	catalog := &fakeCatalog{candidates: catalogOf(5)}
	media := fakeMediaStore{"ENG - Song 1.mp4": 1000}
	bulk, qm, _, _ := newTestBulk(t, catalog, media, 2)
	ctx := context.Background()

	result, err := bulk.Run(ctx, BulkRequest{Repository: "kara.moe", Mode: BulkMissing})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2, 4}, catalog.calls)
	assert.Equal(t, 5, result.Considered)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 4, result.Enqueued)

	items, err := qm.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 4)
	for _, item := range items {
		assert.Equal(t, domain.StatusPlanned, item.Status)
		assert.Equal(t, "kara.moe", item.Repository)
		assert.NotEqual(t, "kid-1", item.KID)
		assert.NotEmpty(t, item.UUID)
	}
}

func TestBulkRun_UpdateMode(t *testing.T) {
	catalog := &fakeCatalog{candidates: catalogOf(3)}
	media := fakeMediaStore{
		"ENG - Song 0.mp4": 1000, // same size
		"ENG - Song 1.mp4": 999,  // outdated
	}
	bulk, qm, _, _ := newTestBulk(t, catalog, media, 10)
	ctx := context.Background()

	result, err := bulk.Run(ctx, BulkRequest{Repository: "kara.moe", Mode: BulkUpdate})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Enqueued)
	assert.Equal(t, 2, result.Skipped)

	items, err := qm.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "kid-1", items[0].KID)
	assert.Equal(t, "ENG - Song 1", items[0].Name)
}

func TestBulkRun_BlacklistedCandidatesNeverEnqueued(t *testing.T) {
	candidates := catalogOf(3)
	candidates[0].Duration = 600
	candidates[2].Title = "Song 2 (Live)"
	catalog := &fakeCatalog{candidates: candidates}
	bulk, qm, svc, _ := newTestBulk(t, catalog, fakeMediaStore{}, 10)
	ctx := context.Background()

	_, err := svc.AddCriterion(ctx, domain.CriterionLongerThan, "300")
	require.NoError(t, err)
	_, err = svc.AddCriterion(ctx, domain.CriterionTitleContains, "live")
	require.NoError(t, err)

	result, err := bulk.Run(ctx, BulkRequest{Repository: "kara.moe"})
	require.NoError(t, err)
	assert.Equal(t, BulkMissing, result.Mode)
	assert.Equal(t, 2, result.Blocked)
	assert.Equal(t, 1, result.Enqueued)

	items, err := qm.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "kid-1", items[0].KID)
}

func TestBulkRun_SkipsAlreadyQueued(t *testing.T) {
	catalog := &fakeCatalog{candidates: catalogOf(3)}
	bulk, qm, _, _ := newTestBulk(t, catalog, fakeMediaStore{}, 10)
	ctx := context.Background()

	first, err := bulk.Run(ctx, BulkRequest{Repository: "kara.moe"})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Enqueued)

	second, err := bulk.Run(ctx, BulkRequest{Repository: "kara.moe"})
	require.NoError(t, err)
	assert.Zero(t, second.Enqueued)
	assert.Equal(t, 3, second.Skipped)

	// Failed items no longer count as queued
	items, err := qm.ListAll(ctx)
	require.NoError(t, err)
	require.NoError(t, qm.UpdateStatus(ctx, items[0].UUID, domain.StatusRunning))
	require.NoError(t, qm.UpdateStatus(ctx, items[0].UUID, domain.StatusFailed))

	third, err := bulk.Run(ctx, BulkRequest{Repository: "kara.moe"})
	require.NoError(t, err)
	assert.Equal(t, 1, third.Enqueued)
}

func TestBulkRun_EmptyKIDsAreNotDeduplicated(t *testing.T) {
	candidates := catalogOf(3)
	for i := range candidates {
		candidates[i].KID = ""
	}
	bulk, _, _, _ := newTestBulk(t, &fakeCatalog{candidates: candidates}, fakeMediaStore{}, 10)

	result, err := bulk.Run(context.Background(), BulkRequest{Repository: "kara.moe"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Enqueued)
	assert.Zero(t, result.Skipped)
}

func TestBulkRun_InvalidRequest(t *testing.T) {
	bulk, _, _, _ := newTestBulk(t, &fakeCatalog{}, fakeMediaStore{}, 10)
	ctx := context.Background()

	_, err := bulk.Run(ctx, BulkRequest{})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = bulk.Run(ctx, BulkRequest{Repository: "kara.moe", Mode: "everything"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestBulkRun_SourceError(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("connection refused")}
	bulk, _, _, repo := newTestBulk(t, catalog, fakeMediaStore{}, 10)

	_, err := bulk.Run(context.Background(), BulkRequest{Repository: "kara.moe"})
	require.Error(t, err)
	assert.Empty(t, repo.items)
}

func TestBulkRun_EmptyCatalog(t *testing.T) {
	catalog := &fakeCatalog{}
	bulk, _, _, _ := newTestBulk(t, catalog, fakeMediaStore{}, 10)

	result, err := bulk.Run(context.Background(), BulkRequest{Repository: "kara.moe"})
	require.NoError(t, err)
	assert.Zero(t, result.Considered)
	assert.Equal(t, []int{0}, catalog.calls)
}
