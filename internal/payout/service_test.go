package payout

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigworks/marketplace-core/internal/config"
	"github.com/gigworks/marketplace-core/internal/domain"
	"github.com/gigworks/marketplace-core/internal/notify"
	"github.com/gigworks/marketplace-core/shared/logger"
)

// fakeStore mirrors the live-payout uniqueness the real storage layer
// gets from its partial unique index.
type fakeStore struct {
	mu         sync.Mutex
	payouts    map[string]*domain.Payout // by payout_id
	accounts   map[string]*domain.PayoutAccount
	payoutRefs map[string]string // jobID|split -> payoutID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		payouts:    make(map[string]*domain.Payout),
		accounts:   make(map[string]*domain.PayoutAccount),
		payoutRefs: make(map[string]string),
	}
}

func (f *fakeStore) livePayoutLocked(jobID, splitType string) *domain.Payout {
	for _, p := range f.payouts {
		if p.JobID == jobID && p.SplitType == splitType && p.Status != domain.PayoutStatusFailed {
			return p
		}
	}
	return nil
}

func (f *fakeStore) InsertPayout(_ context.Context, payout *domain.Payout) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.livePayoutLocked(payout.JobID, payout.SplitType) != nil {
		return false, nil
	}
	copied := *payout
	f.payouts[payout.PayoutID] = &copied
	return true, nil
}

func (f *fakeStore) GetLivePayout(_ context.Context, jobID, splitType string) (*domain.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.livePayoutLocked(jobID, splitType); p != nil {
		copied := *p
		return &copied, nil
	}
	return nil, domain.ErrPayoutNotFound
}

func (f *fakeStore) GetPayoutByID(_ context.Context, payoutID string) (*domain.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payouts[payoutID]
	if !ok {
		return nil, domain.ErrPayoutNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) GetPayoutByTransferID(_ context.Context, transferID string) (*domain.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payouts {
		if p.ExternalTransferID.Valid && p.ExternalTransferID.String == transferID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, domain.ErrPayoutNotFound
}

func (f *fakeStore) MarkPayoutProcessing(_ context.Context, payoutID, transferID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payouts[payoutID]
	if !ok || p.Status != domain.PayoutStatusPending {
		return nil
	}
	p.Status = domain.PayoutStatusProcessing
	p.ExternalTransferID = sql.NullString{String: transferID, Valid: true}
	return nil
}

func (f *fakeStore) MarkPayoutManual(_ context.Context, payoutID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payouts[payoutID]
	if !ok || p.Status != domain.PayoutStatusPending {
		return nil
	}
	p.PaymentMethod = domain.PaymentMethodManual
	p.FailureReason = sql.NullString{String: reason, Valid: true}
	return nil
}

func (f *fakeStore) MarkPayoutPaid(_ context.Context, payoutID, paymentMethod string, paidAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payouts[payoutID]
	if !ok {
		return domain.ErrPayoutNotFound
	}
	p.Status = domain.PayoutStatusPaid
	p.PaymentMethod = paymentMethod
	p.PaidAt = sql.NullTime{Time: paidAt, Valid: true}
	return nil
}

func (f *fakeStore) MarkPayoutFailed(_ context.Context, payoutID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payouts[payoutID]
	if !ok {
		return domain.ErrPayoutNotFound
	}
	p.Status = domain.PayoutStatusFailed
	p.FailureReason = sql.NullString{String: reason, Valid: true}
	return nil
}

func (f *fakeStore) GetPayoutAccount(_ context.Context, workerID string) (*domain.PayoutAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[workerID]
	if !ok || !account.PayoutsEnabled {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (f *fakeStore) RecordPayoutRef(_ context.Context, jobID, splitType, payoutID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payoutRefs[jobID+"|"+splitType] = payoutID
	return nil
}

// fakeGateway records transfer requests and can be told to fail.
type fakeGateway struct {
	mu       sync.Mutex
	fail     bool
	requests []TransferRequest
}

func (f *fakeGateway) CreateTransfer(_ context.Context, req TransferRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", fmt.Errorf("%w: connection refused", domain.ErrGatewayUnavailable)
	}
	f.requests = append(f.requests, req)
	return fmt.Sprintf("tr_%d", len(f.requests)), nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	alerts []notify.Event
}

func (f *fakeNotifier) Notify(_ context.Context, event notify.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeNotifier) AdminAlert(_ context.Context, event notify.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, event)
}

func testPayments() *config.PaymentsConfig {
	return &config.PaymentsConfig{
		CheckinPercent:        50,
		CompletionPercent:     50,
		ReleaseHours:          72,
		TransferExpiryMinutes: 15,
	}
}

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeGateway, *fakeNotifier) {
	t.Helper()
	store := newFakeStore()
	gateway := &fakeGateway{}
	notifier := &fakeNotifier{}
	svc := NewService(store, gateway, notifier, testPayments(), logger.NewDefault().Logger)
	return svc, store, gateway, notifier
}

func testJob() *domain.Job {
	return &domain.Job{
		JobID:           "5f2b8c1e-8a7d-4f3a-9c6b-1d2e3f4a5b6c",
		Title:           "Move-out clean",
		Status:          domain.JobStatusInProgress,
		ClaimedBy:       sql.NullString{String: "w1", Valid: true},
		ClaimedByName:   sql.NullString{String: "Avery Smith", Valid: true},
		PayoutBaseCents: 8000,
		RushBonusCents:  1500,
		PaymentStatus:   domain.PaymentStatusUnpaid,
	}
}

func enableAccount(store *fakeStore, workerID string) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.accounts[workerID] = &domain.PayoutAccount{
		WorkerID:          workerID,
		ExternalAccountID: "acct_" + workerID,
		PayoutsEnabled:    true,
	}
}

func TestCreateSplitPayoutDispatchesToGateway(t *testing.T) {
	svc, store, gateway, _ := newTestService(t)
	enableAccount(store, "w1")
	job := testJob()

	p, err := svc.CreateSplitPayout(context.Background(), job, domain.SplitCheckin)
	require.NoError(t, err)

	assert.Equal(t, int64(4750), p.AmountCents)
	assert.Equal(t, domain.PayoutStatusProcessing, p.Status)
	assert.Equal(t, domain.PaymentMethodGateway, p.PaymentMethod)
	assert.True(t, p.ExternalTransferID.Valid)

	require.Len(t, gateway.requests, 1)
	assert.Equal(t, "acct_w1", gateway.requests[0].AccountID)
	assert.Equal(t, p.PayoutID, gateway.requests[0].IdempotencyKey)

	assert.Equal(t, p.PayoutID, store.payoutRefs[job.JobID+"|"+domain.SplitCheckin])
}

func TestCreateSplitPayoutIdempotent(t *testing.T) {
	svc, _, gateway, _ := newTestService(t)
	job := testJob()

	first, err := svc.CreateSplitPayout(context.Background(), job, domain.SplitCheckin)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := svc.CreateSplitPayout(context.Background(), job, domain.SplitCheckin)
		require.NoError(t, err)
		assert.Equal(t, first.PayoutID, again.PayoutID)
	}

	// No account was enabled, so nothing ever reached the gateway.
	assert.Empty(t, gateway.requests)
}

func TestCreateSplitPayoutConcurrentCreatesOne(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	enableAccount(store, "w1")
	job := testJob()

	const callers = 10
	var wg sync.WaitGroup
	ids := make(chan string, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := svc.CreateSplitPayout(context.Background(), job, domain.SplitCompletion)
			if err == nil {
				ids <- p.PayoutID
			}
		}()
	}
	wg.Wait()
	close(ids)

	unique := make(map[string]bool)
	for id := range ids {
		unique[id] = true
	}
	assert.Len(t, unique, 1)

	store.mu.Lock()
	live := 0
	for _, p := range store.payouts {
		if p.SplitType == domain.SplitCompletion && p.Status != domain.PayoutStatusFailed {
			live++
		}
	}
	store.mu.Unlock()
	assert.Equal(t, 1, live)
}

func TestSplitsCoverFullTotal(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	job := testJob()
	job.PayoutBaseCents = 12300
	job.RushBonusCents = 700

	first, err := svc.CreateSplitPayout(context.Background(), job, domain.SplitCheckin)
	require.NoError(t, err)
	second, err := svc.CreateSplitPayout(context.Background(), job, domain.SplitCompletion)
	require.NoError(t, err)

	assert.Equal(t, job.TotalCents(), first.AmountCents+second.AmountCents)
}

func TestGatewayFailureDowngradesToManual(t *testing.T) {
	svc, store, gateway, notifier := newTestService(t)
	enableAccount(store, "w1")
	gateway.fail = true
	job := testJob()

	p, err := svc.CreateSplitPayout(context.Background(), job, domain.SplitCheckin)
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentMethodManual, p.PaymentMethod)
	assert.Equal(t, domain.PayoutStatusPending, p.Status)

	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, "payout.manual_required", notifier.alerts[0].Type)
	assert.Equal(t, p.PayoutID, notifier.alerts[0].Data["payout_id"])
}

func TestMissingAccountDowngradesToManual(t *testing.T) {
	svc, _, _, notifier := newTestService(t)
	job := testJob()

	p, err := svc.CreateSplitPayout(context.Background(), job, domain.SplitCheckin)
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentMethodManual, p.PaymentMethod)
	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, "payout.manual_required", notifier.alerts[0].Type)
}

func TestCreateSplitPayoutUnclaimedJob(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	job := testJob()
	job.ClaimedBy = sql.NullString{}

	_, err := svc.CreateSplitPayout(context.Background(), job, domain.SplitCheckin)
	var violation *domain.InvariantViolation
	assert.ErrorAs(t, err, &violation)
}

func TestHandleTransferOutcomePaid(t *testing.T) {
	svc, store, _, notifier := newTestService(t)
	enableAccount(store, "w1")
	job := testJob()

	p, err := svc.CreateSplitPayout(context.Background(), job, domain.SplitCheckin)
	require.NoError(t, err)
	transferID := p.ExternalTransferID.String

	require.NoError(t, svc.HandleTransferOutcome(context.Background(), transferID, OutcomePaid, ""))

	settled, err := store.GetPayoutByID(context.Background(), p.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPaid, settled.Status)
	assert.True(t, settled.PaidAt.Valid)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "payout.paid", notifier.events[0].Type)

	// Replayed webhook is a no-op.
	require.NoError(t, svc.HandleTransferOutcome(context.Background(), transferID, OutcomePaid, ""))
	assert.Len(t, notifier.events, 1)
}

func TestHandleTransferOutcomeFailed(t *testing.T) {
	svc, store, _, notifier := newTestService(t)
	enableAccount(store, "w1")
	job := testJob()

	p, err := svc.CreateSplitPayout(context.Background(), job, domain.SplitCheckin)
	require.NoError(t, err)

	require.NoError(t, svc.HandleTransferOutcome(context.Background(), p.ExternalTransferID.String, OutcomeFailed, "account closed"))

	failed, err := store.GetPayoutByID(context.Background(), p.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusFailed, failed.Status)
	assert.Equal(t, "account closed", failed.FailureReason.String)

	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, "payout.transfer_failed", notifier.alerts[0].Type)
}

func TestHandleTransferOutcomeUnknownTransfer(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	err := svc.HandleTransferOutcome(context.Background(), "tr_unknown", OutcomePaid, "")
	assert.ErrorIs(t, err, domain.ErrPayoutNotFound)
}

func TestMarkManualPaid(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	job := testJob()

	p, err := svc.CreateSplitPayout(context.Background(), job, domain.SplitCheckin)
	require.NoError(t, err)

	paid, err := svc.MarkManualPaid(context.Background(), p.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPaid, paid.Status)
	assert.Equal(t, domain.PaymentMethodManual, paid.PaymentMethod)

	stored, err := store.GetPayoutByID(context.Background(), p.PayoutID)
	require.NoError(t, err)
	assert.True(t, stored.PaidAt.Valid)
}
