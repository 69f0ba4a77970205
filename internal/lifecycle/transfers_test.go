package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigworks/marketplace-core/internal/domain"
)

func newTestTransfers(t *testing.T) (*Transfers, *Service, *fakeStore) {
	t.Helper()
	svc, store, _, _ := newTestService(t)
	return NewTransfers(svc, store), svc, store
}

func claimedJob(t *testing.T, svc *Service, store *fakeStore, workerID string) *domain.Job {
	t.Helper()
	job := seedJob(t, svc, store)
	claimed, err := svc.Claim(context.Background(), job.JobID, workerID, "Avery Smith")
	require.NoError(t, err)
	return claimed
}

func TestOfferDirectTransfer(t *testing.T) {
	transfers, svc, store := newTestTransfers(t)
	job := claimedJob(t, svc, store, "w1")

	offer, err := transfers.Offer(context.Background(), job.JobID, "w1", "w2", domain.TransferTypeDirect)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusPending, offer.Status)
	assert.Equal(t, "w2", offer.ToWorker)

	// The job stays with the holder until the target responds.
	current, err := store.GetJobByID(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "w1", current.ClaimedBy.String)
}

func TestOfferRequeueTransfer(t *testing.T) {
	transfers, svc, store := newTestTransfers(t)
	job := claimedJob(t, svc, store, "w1")

	offer, err := transfers.Offer(context.Background(), job.JobID, "w1", "", domain.TransferTypeRequeue)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusAccepted, offer.Status)

	current, err := store.GetJobByID(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusReopened, current.Status)
	assert.False(t, current.ClaimedBy.Valid)
	assert.Equal(t, 1, current.ReopenCount)
}

func TestOfferRejectsNonHolder(t *testing.T) {
	transfers, svc, store := newTestTransfers(t)
	job := claimedJob(t, svc, store, "w1")

	_, err := transfers.Offer(context.Background(), job.JobID, "w2", "w3", domain.TransferTypeDirect)
	assert.Error(t, err)
}

func TestOfferDirectRequiresTarget(t *testing.T) {
	transfers, svc, store := newTestTransfers(t)
	job := claimedJob(t, svc, store, "w1")

	_, err := transfers.Offer(context.Background(), job.JobID, "w1", "", domain.TransferTypeDirect)
	assert.Error(t, err)
}

func TestAcceptTransferReassignsExactlyOnce(t *testing.T) {
	transfers, svc, store := newTestTransfers(t)
	job := claimedJob(t, svc, store, "w1")

	offer, err := transfers.Offer(context.Background(), job.JobID, "w1", "w2", domain.TransferTypeDirect)
	require.NoError(t, err)

	accepted, err := transfers.Accept(context.Background(), offer.TransferID, "w2", "Blake Jones")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusAccepted, accepted.Status)

	current, err := store.GetJobByID(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "w2", current.ClaimedBy.String)
	assert.Equal(t, "Blake Jones", current.ClaimedByName.String)

	// A second accept loses the status guard.
	_, err = transfers.Accept(context.Background(), offer.TransferID, "w2", "Blake Jones")
	assert.ErrorIs(t, err, domain.ErrTransferNotPending)
}

func TestAcceptRejectsWrongTarget(t *testing.T) {
	transfers, svc, store := newTestTransfers(t)
	job := claimedJob(t, svc, store, "w1")

	offer, err := transfers.Offer(context.Background(), job.JobID, "w1", "w2", domain.TransferTypeDirect)
	require.NoError(t, err)

	_, err = transfers.Accept(context.Background(), offer.TransferID, "w3", "Casey Ray")
	assert.Error(t, err)
}

func TestDeclineTransferKeepsHolder(t *testing.T) {
	transfers, svc, store := newTestTransfers(t)
	job := claimedJob(t, svc, store, "w1")

	offer, err := transfers.Offer(context.Background(), job.JobID, "w1", "w2", domain.TransferTypeDirect)
	require.NoError(t, err)

	declined, err := transfers.Decline(context.Background(), offer.TransferID, "w2")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusDeclined, declined.Status)

	current, err := store.GetJobByID(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "w1", current.ClaimedBy.String)

	// Declined offers cannot be accepted afterwards.
	_, err = transfers.Accept(context.Background(), offer.TransferID, "w2", "Blake Jones")
	assert.ErrorIs(t, err, domain.ErrTransferNotPending)
}
