package sweep

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/gigworks/marketplace-core/internal/domain"
	"github.com/gigworks/marketplace-core/internal/notify"
)

// ReportStore is the slice of the storage layer the reporter uses.
type ReportStore interface {
	ListPaidPayoutsBetween(ctx context.Context, start, end time.Time) ([]domain.Payout, error)
	UpsertPayoutPeriod(ctx context.Context, period *domain.PayoutPeriod) error
	MarkPeriodReported(ctx context.Context, periodID string) error
}

// ReportNotifier publishes closed-period events on the report channel.
type ReportNotifier interface {
	Report(ctx context.Context, event notify.Event)
}

// Reporter closes the most recent biweekly payout period: paid payouts
// are grouped by recipient, snapshotted with a CSV rendering, published
// on the report channel, and the period marked reported. Re-running a
// tick replaces the snapshot, so a crashed run is safe to repeat.
type Reporter struct {
	store    ReportStore
	notifier ReportNotifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewReporter creates a Reporter.
func NewReporter(store ReportStore, notifier ReportNotifier, logger *slog.Logger) *Reporter {
	return &Reporter{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// PeriodBounds returns the id and [start, end) bounds of the most
// recently closed half-month period as of now. The first half of a month
// is suffix A, the second half suffix B.
func PeriodBounds(now time.Time) (string, time.Time, time.Time) {
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	mid := monthStart.AddDate(0, 0, 15)

	if now.Day() >= 16 {
		id := fmt.Sprintf("%04d-%02d-A", monthStart.Year(), monthStart.Month())
		return id, monthStart, mid
	}

	prevStart := monthStart.AddDate(0, -1, 0)
	prevMid := prevStart.AddDate(0, 0, 15)
	id := fmt.Sprintf("%04d-%02d-B", prevStart.Year(), prevStart.Month())
	return id, prevMid, monthStart
}

// Run closes and publishes one reporting period.
func (r *Reporter) Run(ctx context.Context) {
	periodID, start, end := PeriodBounds(r.now())

	payouts, err := r.store.ListPaidPayoutsBetween(ctx, start, end)
	if err != nil {
		r.logger.Error("failed to list paid payouts", "period_id", periodID, "error", err)
		return
	}

	totals := GroupByRecipient(payouts)

	var totalCents int64
	for _, t := range totals {
		totalCents += t.TotalCents
	}

	breakdown, err := json.Marshal(totals)
	if err != nil {
		r.logger.Error("failed to marshal breakdown", "period_id", periodID, "error", err)
		return
	}

	csvSnapshot, err := RenderCSV(totals)
	if err != nil {
		r.logger.Error("failed to render report csv", "period_id", periodID, "error", err)
		return
	}

	period := &domain.PayoutPeriod{
		PeriodID:     periodID,
		StartDate:    start,
		EndDate:      end,
		TotalPayouts: len(payouts),
		TotalCents:   totalCents,
		Breakdown:    breakdown,
		CSV:          csvSnapshot,
		Status:       domain.PeriodStatusClosed,
	}

	if err := r.store.UpsertPayoutPeriod(ctx, period); err != nil {
		r.logger.Error("failed to persist payout period", "period_id", periodID, "error", err)
		return
	}

	r.notifier.Report(ctx, notify.Event{
		Type: "report.period_closed",
		Data: map[string]string{
			"period_id":     periodID,
			"total_payouts": strconv.Itoa(len(payouts)),
			"total_cents":   strconv.FormatInt(totalCents, 10),
		},
	})

	if err := r.store.MarkPeriodReported(ctx, periodID); err != nil {
		r.logger.Error("failed to mark period reported", "period_id", periodID, "error", err)
		return
	}

	r.logger.Info("payout period reported",
		"period_id", periodID,
		"total_payouts", len(payouts),
		"total_cents", totalCents)
}

// GroupByRecipient sums paid payouts per recipient, ordered by recipient id.
func GroupByRecipient(payouts []domain.Payout) []domain.RecipientTotal {
	byRecipient := make(map[string]*domain.RecipientTotal)
	for _, p := range payouts {
		t, ok := byRecipient[p.RecipientID]
		if !ok {
			t = &domain.RecipientTotal{
				RecipientID:   p.RecipientID,
				RecipientName: p.RecipientName,
			}
			byRecipient[p.RecipientID] = t
		}
		t.PayoutCount++
		t.TotalCents += p.AmountCents
	}

	totals := make([]domain.RecipientTotal, 0, len(byRecipient))
	for _, t := range byRecipient {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].RecipientID < totals[j].RecipientID
	})
	return totals
}

// RenderCSV renders the per-recipient breakdown as a CSV document.
func RenderCSV(totals []domain.RecipientTotal) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"recipient_id", "recipient_name", "payout_count", "total_cents"}); err != nil {
		return "", err
	}
	for _, t := range totals {
		record := []string{
			t.RecipientID,
			t.RecipientName,
			strconv.Itoa(t.PayoutCount),
			strconv.FormatInt(t.TotalCents, 10),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
