package pay

import (
	"context"
	"errors"
	"log"
	"time"

	"eventura/ledger"
	"eventura/models"
)

// Reconciler sweeps payment records whose participation append never landed
// (process killed between the two writes) and replays the append. Safe to run
// repeatedly: the ledger guard makes the append idempotent.
type Reconciler struct {
	Payments PaymentStore
	Ledger   ParticipationLedger
	MinAge   time.Duration // leave in-flight confirms alone
	Interval time.Duration
}

func NewReconciler(payments PaymentStore, lg ParticipationLedger) *Reconciler {
	return &Reconciler{
		Payments: payments,
		Ledger:   lg,
		MinAge:   2 * time.Minute,
		Interval: time.Minute,
	}
}

// Run sweeps on a ticker until ctx is cancelled.
func (rc *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(rc.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n, err := rc.Sweep(ctx); err != nil {
				log.Printf("[reconcile] sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("[reconcile] repaired %d orphaned payment(s)", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Sweep repairs all stale unrecorded payments and returns how many it fixed.
func (rc *Reconciler) Sweep(ctx context.Context) (int, error) {
	orphans, err := rc.Payments.FindUnrecorded(ctx, time.Now().Add(-rc.MinAge))
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, rec := range orphans {
		part := models.ParticipatedEvent{
			EventID:           rec.EventID,
			Status:            models.StatusUpcoming,
			ParticipationDate: rec.CreatedAt,
			Payment: &models.PaymentDetails{
				PaymentID:   rec.PaymentID,
				AmountMinor: rec.AmountMinor,
				Currency:    rec.Currency,
				Status:      rec.Status,
			},
		}

		err := rc.Ledger.AddParticipation(ctx, rec.UserID, part)
		if err != nil && !errors.Is(err, ledger.ErrAlreadyParticipating) {
			log.Printf("[reconcile] payment %s: append failed: %v", rec.PaymentID, err)
			continue
		}
		if err := rc.Payments.MarkParticipationRecorded(ctx, rec.PaymentID); err != nil {
			log.Printf("[reconcile] payment %s: mark failed: %v", rec.PaymentID, err)
			continue
		}
		repaired++
	}
	return repaired, nil
}
