package sweep

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gigworks/marketplace-core/internal/config"
	"github.com/gigworks/marketplace-core/internal/domain"
	"github.com/gigworks/marketplace-core/internal/notify"
	"github.com/gigworks/marketplace-core/shared/logger"
)

type fakeTransferStore struct {
	mu       sync.Mutex
	jobs     map[string]*domain.Job
	offers   map[string]*domain.TransferOffer
}

func newFakeTransferStore() *fakeTransferStore {
	return &fakeTransferStore{
		jobs:   make(map[string]*domain.Job),
		offers: make(map[string]*domain.TransferOffer),
	}
}

func (f *fakeTransferStore) ListExpiredPendingTransfers(_ context.Context, cutoff time.Time) ([]domain.TransferOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TransferOffer
	for _, o := range f.offers {
		if o.TransferType == domain.TransferTypeDirect && o.Status == domain.TransferStatusPending && o.CreatedAt.Before(cutoff) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeTransferStore) ExpireTransferOffer(_ context.Context, transferID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.offers[transferID]
	if !ok || o.Status != domain.TransferStatusPending {
		return false, nil
	}
	o.Status = domain.TransferStatusExpired
	return true, nil
}

func (f *fakeTransferStore) GetJobByID(_ context.Context, jobID string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copied := *j
	return &copied, nil
}

func (f *fakeTransferStore) RequeueJob(_ context.Context, jobID, from string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[jobID]
	if !ok || j.Status != from {
		return false, nil
	}
	j.Status = domain.JobStatusReopened
	j.ClaimedBy = sql.NullString{}
	j.ClaimedByName = sql.NullString{}
	j.ReopenCount++
	return true, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, event notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) AdminAlert(_ context.Context, event notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) Report(_ context.Context, event notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func newTransferSweeper(store *fakeTransferStore, notifier *recordingNotifier, now time.Time) *TransferSweeper {
	payments := &config.PaymentsConfig{TransferExpiryMinutes: 15}
	sweeper := NewTransferSweeper(store, notifier, payments, logger.NewDefault().Logger)
	sweeper.now = func() time.Time { return now }
	return sweeper
}

func seedPendingOffer(store *fakeTransferStore, transferID string, createdAt time.Time) {
	store.jobs["job-1"] = &domain.Job{
		JobID:     "job-1",
		Status:    domain.JobStatusUpcoming,
		ClaimedBy: sql.NullString{String: "w1", Valid: true},
	}
	store.offers[transferID] = &domain.TransferOffer{
		TransferID:   transferID,
		JobID:        "job-1",
		FromWorker:   "w1",
		ToWorker:     "w2",
		TransferType: domain.TransferTypeDirect,
		Status:       domain.TransferStatusPending,
		CreatedAt:    createdAt,
	}
}

func TestTransferSweepExpiresStaleOffer(t *testing.T) {
	store := newFakeTransferStore()
	notifier := &recordingNotifier{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seedPendingOffer(store, "tf-1", now.Add(-20*time.Minute))

	newTransferSweeper(store, notifier, now).Run(context.Background())

	assert.Equal(t, domain.TransferStatusExpired, store.offers["tf-1"].Status)
	assert.Equal(t, domain.JobStatusReopened, store.jobs["job-1"].Status)
	assert.False(t, store.jobs["job-1"].ClaimedBy.Valid)
	assert.Equal(t, 1, store.jobs["job-1"].ReopenCount)

	assert.Len(t, notifier.events, 1)
	assert.Equal(t, "transfer.expired", notifier.events[0].Type)
	assert.Equal(t, "w1", notifier.events[0].WorkerID)
}

func TestTransferSweepLeavesFreshOffer(t *testing.T) {
	store := newFakeTransferStore()
	notifier := &recordingNotifier{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seedPendingOffer(store, "tf-1", now.Add(-10*time.Minute))

	newTransferSweeper(store, notifier, now).Run(context.Background())

	assert.Equal(t, domain.TransferStatusPending, store.offers["tf-1"].Status)
	assert.Equal(t, domain.JobStatusUpcoming, store.jobs["job-1"].Status)
	assert.Empty(t, notifier.events)
}

func TestTransferSweepExpiresExactlyOnce(t *testing.T) {
	store := newFakeTransferStore()
	notifier := &recordingNotifier{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seedPendingOffer(store, "tf-1", now.Add(-20*time.Minute))

	newTransferSweeper(store, notifier, now).Run(context.Background())
	newTransferSweeper(store, notifier, now.Add(5*time.Minute)).Run(context.Background())

	assert.Equal(t, 1, store.jobs["job-1"].ReopenCount)
	assert.Len(t, notifier.events, 1)
}

func TestTransferSweepSkipsReassignedJob(t *testing.T) {
	store := newFakeTransferStore()
	notifier := &recordingNotifier{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seedPendingOffer(store, "tf-1", now.Add(-20*time.Minute))
	// The job moved on to another worker before the offer expired.
	store.jobs["job-1"].ClaimedBy = sql.NullString{String: "w3", Valid: true}

	newTransferSweeper(store, notifier, now).Run(context.Background())

	assert.Equal(t, domain.TransferStatusExpired, store.offers["tf-1"].Status)
	assert.Equal(t, domain.JobStatusUpcoming, store.jobs["job-1"].Status)
	assert.Equal(t, "w3", store.jobs["job-1"].ClaimedBy.String)
}
