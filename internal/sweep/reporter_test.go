package sweep

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigworks/marketplace-core/internal/domain"
	"github.com/gigworks/marketplace-core/shared/logger"
)

type fakeReportStore struct {
	mu       sync.Mutex
	payouts  []domain.Payout
	periods  map[string]*domain.PayoutPeriod
	reported []string
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{periods: make(map[string]*domain.PayoutPeriod)}
}

func (f *fakeReportStore) ListPaidPayoutsBetween(_ context.Context, start, end time.Time) ([]domain.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Payout
	for _, p := range f.payouts {
		if p.Status == domain.PayoutStatusPaid && p.PaidAt.Valid &&
			!p.PaidAt.Time.Before(start) && p.PaidAt.Time.Before(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeReportStore) UpsertPayoutPeriod(_ context.Context, period *domain.PayoutPeriod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *period
	f.periods[period.PeriodID] = &copied
	return nil
}

func (f *fakeReportStore) MarkPeriodReported(_ context.Context, periodID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.periods[periodID]; ok {
		p.Status = domain.PeriodStatusReported
	}
	f.reported = append(f.reported, periodID)
	return nil
}

func paidPayout(recipientID, recipientName string, amount int64, paidAt time.Time) domain.Payout {
	return domain.Payout{
		PayoutID:      "payout-" + recipientID + paidAt.Format("020106150405"),
		JobID:         "job-" + recipientID,
		RecipientID:   recipientID,
		RecipientName: recipientName,
		AmountCents:   amount,
		SplitType:     domain.SplitCheckin,
		Status:        domain.PayoutStatusPaid,
		PaidAt:        sql.NullTime{Time: paidAt, Valid: true},
	}
}

func TestPeriodBounds(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantID    string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "16th closes first half",
			now:       time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC),
			wantID:    "2026-03-A",
			wantStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "1st closes previous second half",
			now:       time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
			wantID:    "2026-02-B",
			wantStart: time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "january 1st closes december of previous year",
			now:       time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
			wantID:    "2025-12-B",
			wantStart: time.Date(2025, 12, 16, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "late month still reports first half",
			now:       time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC),
			wantID:    "2026-03-A",
			wantStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, start, end := PeriodBounds(tt.now)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestGroupByRecipient(t *testing.T) {
	base := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	payouts := []domain.Payout{
		paidPayout("w2", "Blake Jones", 3000, base),
		paidPayout("w1", "Avery Smith", 4750, base),
		paidPayout("w1", "Avery Smith", 4750, base.Add(time.Hour)),
	}

	totals := GroupByRecipient(payouts)

	require.Len(t, totals, 2)
	assert.Equal(t, "w1", totals[0].RecipientID)
	assert.Equal(t, 2, totals[0].PayoutCount)
	assert.Equal(t, int64(9500), totals[0].TotalCents)
	assert.Equal(t, "w2", totals[1].RecipientID)
	assert.Equal(t, 1, totals[1].PayoutCount)
	assert.Equal(t, int64(3000), totals[1].TotalCents)
}

func TestRenderCSV(t *testing.T) {
	csvOut, err := RenderCSV([]domain.RecipientTotal{
		{RecipientID: "w1", RecipientName: "Avery Smith", PayoutCount: 2, TotalCents: 9500},
	})
	require.NoError(t, err)

	assert.Equal(t, "recipient_id,recipient_name,payout_count,total_cents\nw1,Avery Smith,2,9500\n", csvOut)
}

func TestReporterClosesPeriod(t *testing.T) {
	store := newFakeReportStore()
	notifier := &recordingNotifier{}

	inPeriod := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	outOfPeriod := time.Date(2026, 3, 17, 10, 0, 0, 0, time.UTC)
	store.payouts = []domain.Payout{
		paidPayout("w1", "Avery Smith", 4750, inPeriod),
		paidPayout("w1", "Avery Smith", 4750, inPeriod.Add(time.Hour)),
		paidPayout("w2", "Blake Jones", 3000, inPeriod),
		paidPayout("w3", "Casey Ray", 9999, outOfPeriod),
	}

	reporter := NewReporter(store, notifier, logger.NewDefault().Logger)
	reporter.now = func() time.Time { return time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC) }

	reporter.Run(context.Background())

	period := store.periods["2026-03-A"]
	require.NotNil(t, period)
	assert.Equal(t, 3, period.TotalPayouts)
	assert.Equal(t, int64(12500), period.TotalCents)
	assert.Equal(t, domain.PeriodStatusReported, period.Status)
	assert.Contains(t, period.CSV, "w1,Avery Smith,2,9500")
	assert.Contains(t, period.CSV, "w2,Blake Jones,1,3000")
	assert.NotContains(t, period.CSV, "w3")

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "report.period_closed", notifier.events[0].Type)
	assert.Equal(t, "2026-03-A", notifier.events[0].Data["period_id"])
	assert.Equal(t, []string{"2026-03-A"}, store.reported)
}

func TestReporterRerunReplacesSnapshot(t *testing.T) {
	store := newFakeReportStore()
	notifier := &recordingNotifier{}

	inPeriod := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	store.payouts = []domain.Payout{paidPayout("w1", "Avery Smith", 4750, inPeriod)}

	reporter := NewReporter(store, notifier, logger.NewDefault().Logger)
	reporter.now = func() time.Time { return time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC) }

	reporter.Run(context.Background())
	reporter.Run(context.Background())

	period := store.periods["2026-03-A"]
	require.NotNil(t, period)
	assert.Equal(t, 1, period.TotalPayouts)
	assert.Equal(t, int64(4750), period.TotalCents)
}
