package pay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventura/ledger"
	"eventura/models"
	"eventura/stripe"
)

// State of one payment attempt.
type State string

const (
	StateIdle                    State = "idle"
	StateRequestingAuthorization State = "requesting_authorization"
	StateAwaitingConfirmation    State = "awaiting_confirmation"
	StateRecording               State = "recording"
	StateDone                    State = "done"
	StateFailed                  State = "failed"
)

var (
	ErrAlreadyPaid      = errors.New("payment already recorded for this event")
	ErrNotSucceeded     = errors.New("payment intent not succeeded")
	ErrIntentMismatch   = errors.New("payment intent does not belong to this user and event")
	ErrDuplicatePayment = errors.New("payment record already exists")
)

// IntentService is the processor surface the orchestrator needs.
type IntentService interface {
	CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*stripe.Intent, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*stripe.Intent, error)
}

// PaymentStore persists payment records.
type PaymentStore interface {
	InsertPayment(ctx context.Context, rec models.PaymentRecord) error
	MarkParticipationRecorded(ctx context.Context, paymentID string) error
	FindUnrecorded(ctx context.Context, olderThan time.Time) ([]models.PaymentRecord, error)
}

// ParticipationLedger appends participations; the append is idempotent per
// (user, event) which is what makes the saga replayable.
type ParticipationLedger interface {
	AddParticipation(ctx context.Context, userID string, part models.ParticipatedEvent) error
	HasActiveParticipation(ctx context.Context, userID, eventID string) (bool, error)
}

// Orchestrator drives one payment attempt through
// Idle -> RequestingAuthorization -> AwaitingConfirmation -> Recording -> Done/Failed.
// The Recording phase is two writes (payment record, then ledger append) tied
// together by the participation_recorded flag instead of a cross-document
// transaction; the reconciler replays the second write if the first attempt
// dies in between.
type Orchestrator struct {
	Intents  IntentService
	Payments PaymentStore
	Ledger   ParticipationLedger
	Currency string
}

func NewOrchestrator(intents IntentService, payments PaymentStore, lg ParticipationLedger) *Orchestrator {
	return &Orchestrator{Intents: intents, Payments: payments, Ledger: lg, Currency: "eur"}
}

// Begin guards the attempt and requests an authorization from the processor.
// The returned client secret is what the mobile client feeds its payment
// sheet.
func (o *Orchestrator) Begin(ctx context.Context, userID string, event *models.Event) (*stripe.Intent, State, error) {
	exists, err := o.Ledger.HasActiveParticipation(ctx, userID, event.EventID)
	if err != nil {
		return nil, StateFailed, fmt.Errorf("participation check: %w", err)
	}
	if exists {
		return nil, StateFailed, ErrAlreadyPaid
	}

	amount, err := ParsePrice(event.Price)
	if err != nil {
		return nil, StateFailed, fmt.Errorf("price %q: %w", event.Price, err)
	}

	intent, err := o.Intents.CreatePaymentIntent(ctx, amount, o.Currency, map[string]string{
		"userid":  userID,
		"eventid": event.EventID,
	})
	if err != nil {
		return nil, StateFailed, err
	}
	return intent, StateAwaitingConfirmation, nil
}

// Confirm verifies the intent with the processor and records the outcome:
// one PaymentRecord plus one participation per (user, event), no matter how
// often it is called.
func (o *Orchestrator) Confirm(ctx context.Context, userID, eventID, intentID string) (State, error) {
	intent, err := o.Intents.RetrievePaymentIntent(ctx, intentID)
	if err != nil {
		return StateFailed, err
	}
	if intent.Status != models.PaymentSucceeded {
		return StateFailed, fmt.Errorf("%w: status %q", ErrNotSucceeded, intent.Status)
	}
	// The intent authorizes exactly the (user, event) Begin stamped into its
	// metadata; a confirm against anything else must not write a thing.
	if intent.Metadata["userid"] != userID || intent.Metadata["eventid"] != eventID {
		return StateFailed, fmt.Errorf("%w: intent %s", ErrIntentMismatch, intent.ID)
	}

	now := time.Now()
	rec := models.PaymentRecord{
		PaymentID:   intent.ID,
		UserID:      userID,
		EventID:     eventID,
		AmountMinor: intent.Amount,
		Currency:    intent.Currency,
		Status:      intent.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = o.Payments.InsertPayment(ctx, rec)
	if err != nil && !errors.Is(err, ErrDuplicatePayment) {
		return StateFailed, fmt.Errorf("record payment: %w", err)
	}
	// A duplicate insert means an earlier confirm got this far; fall through
	// and make sure the participation landed too.

	if err := o.recordParticipation(ctx, rec); err != nil {
		// Charged but not yet recorded. The payment record is persisted with
		// participation_recorded=false, so the reconciler will repair it.
		return StateRecording, err
	}
	return StateDone, nil
}

func (o *Orchestrator) recordParticipation(ctx context.Context, rec models.PaymentRecord) error {
	part := models.ParticipatedEvent{
		EventID:           rec.EventID,
		Status:            models.StatusUpcoming,
		ParticipationDate: time.Now(),
		Payment: &models.PaymentDetails{
			PaymentID:   rec.PaymentID,
			AmountMinor: rec.AmountMinor,
			Currency:    rec.Currency,
			Status:      rec.Status,
		},
	}

	err := o.Ledger.AddParticipation(ctx, rec.UserID, part)
	if err != nil && !errors.Is(err, ledger.ErrAlreadyParticipating) {
		return fmt.Errorf("append participation: %w", err)
	}
	if err := o.Payments.MarkParticipationRecorded(ctx, rec.PaymentID); err != nil {
		return fmt.Errorf("mark recorded: %w", err)
	}
	return nil
}
