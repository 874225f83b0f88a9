package pay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eventura/ledger"
	"eventura/models"
	"eventura/stripe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIntents struct {
	created   []stripe.Intent
	retrieved map[string]*stripe.Intent
}

func (f *fakeIntents) CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*stripe.Intent, error) {
	in := stripe.Intent{
		ID:           "pi_test",
		ClientSecret: "pi_test_secret",
		Status:       "requires_confirmation",
		Amount:       amountMinor,
		Currency:     currency,
		Metadata:     metadata,
	}
	f.created = append(f.created, in)
	return &in, nil
}

func (f *fakeIntents) RetrievePaymentIntent(ctx context.Context, id string) (*stripe.Intent, error) {
	in, ok := f.retrieved[id]
	if !ok {
		return nil, errors.New("no such intent")
	}
	return in, nil
}

type fakePayments struct {
	mu   sync.Mutex
	recs map[string]*models.PaymentRecord
	// markErr makes the flag flip fail, simulating a crash between writes
	markErr error
}

func newFakePayments() *fakePayments {
	return &fakePayments{recs: map[string]*models.PaymentRecord{}}
}

func (f *fakePayments) InsertPayment(ctx context.Context, rec models.PaymentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.recs[rec.PaymentID]; ok {
		return ErrDuplicatePayment
	}
	f.recs[rec.PaymentID] = &rec
	return nil
}

func (f *fakePayments) MarkParticipationRecorded(ctx context.Context, paymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	rec, ok := f.recs[paymentID]
	if !ok {
		return errors.New("payment not found")
	}
	rec.ParticipationRecorded = true
	rec.UpdatedAt = time.Now()
	return nil
}

func (f *fakePayments) FindUnrecorded(ctx context.Context, olderThan time.Time) ([]models.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PaymentRecord
	for _, rec := range f.recs {
		if !rec.ParticipationRecorded && rec.CreatedAt.Before(olderThan) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

type fakeLedger struct {
	mu    sync.Mutex
	parts map[string][]models.ParticipatedEvent // userID -> participations
	// addErr makes the append fail, simulating a lost second write
	addErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{parts: map[string][]models.ParticipatedEvent{}}
}

func (f *fakeLedger) AddParticipation(ctx context.Context, userID string, part models.ParticipatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	for _, p := range f.parts[userID] {
		if p.EventID == part.EventID && p.Status != models.StatusCancelled {
			return ledger.ErrAlreadyParticipating
		}
	}
	f.parts[userID] = append(f.parts[userID], part)
	return nil
}

func (f *fakeLedger) HasActiveParticipation(ctx context.Context, userID, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.parts[userID] {
		if p.EventID == eventID && p.Status != models.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func succeededIntent() *stripe.Intent {
	return &stripe.Intent{
		ID:       "pi_test",
		Status:   models.PaymentSucceeded,
		Amount:   3000,
		Currency: "eur",
		Metadata: map[string]string{"userid": "u1", "eventid": "ev1"},
	}
}

func TestBegin(t *testing.T) {
	intents := &fakeIntents{}
	lg := newFakeLedger()
	orch := NewOrchestrator(intents, newFakePayments(), lg)

	event := &models.Event{EventID: "ev1", Price: "30 €"}
	intent, state, err := orch.Begin(context.Background(), "u1", event)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingConfirmation, state)
	assert.Equal(t, int64(3000), intent.Amount)
	assert.Equal(t, "eur", intent.Currency)
	assert.NotEmpty(t, intent.ClientSecret)
}

func TestBeginRejectsExistingParticipation(t *testing.T) {
	lg := newFakeLedger()
	lg.parts["u1"] = []models.ParticipatedEvent{{EventID: "ev1", Status: models.StatusUpcoming}}
	orch := NewOrchestrator(&fakeIntents{}, newFakePayments(), lg)

	_, state, err := orch.Begin(context.Background(), "u1", &models.Event{EventID: "ev1", Price: "30 €"})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Equal(t, StateFailed, state)
}

func TestBeginRejectsUnparseablePrice(t *testing.T) {
	orch := NewOrchestrator(&fakeIntents{}, newFakePayments(), newFakeLedger())

	_, state, err := orch.Begin(context.Background(), "u1", &models.Event{EventID: "ev1", Price: "free"})
	assert.ErrorIs(t, err, ErrUnparseablePrice)
	assert.Equal(t, StateFailed, state)
}

func TestConfirmRecordsPaymentAndParticipation(t *testing.T) {
	intents := &fakeIntents{retrieved: map[string]*stripe.Intent{"pi_test": succeededIntent()}}
	payments := newFakePayments()
	lg := newFakeLedger()
	orch := NewOrchestrator(intents, payments, lg)

	state, err := orch.Confirm(context.Background(), "u1", "ev1", "pi_test")
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)

	rec := payments.recs["pi_test"]
	require.NotNil(t, rec)
	assert.True(t, rec.ParticipationRecorded)
	assert.Equal(t, int64(3000), rec.AmountMinor)

	require.Len(t, lg.parts["u1"], 1)
	part := lg.parts["u1"][0]
	assert.Equal(t, "ev1", part.EventID)
	assert.Equal(t, models.StatusUpcoming, part.Status)
	require.NotNil(t, part.Payment)
	assert.Equal(t, "pi_test", part.Payment.PaymentID)
}

func TestConfirmIsIdempotent(t *testing.T) {
	intents := &fakeIntents{retrieved: map[string]*stripe.Intent{"pi_test": succeededIntent()}}
	payments := newFakePayments()
	lg := newFakeLedger()
	orch := NewOrchestrator(intents, payments, lg)

	for i := 0; i < 3; i++ {
		state, err := orch.Confirm(context.Background(), "u1", "ev1", "pi_test")
		require.NoError(t, err)
		assert.Equal(t, StateDone, state)
	}

	// exactly one payment record and one participation, however often confirmed
	assert.Len(t, payments.recs, 1)
	assert.Len(t, lg.parts["u1"], 1)
}

func TestConfirmRejectsMismatchedIntent(t *testing.T) {
	cheap := succeededIntent()
	cheap.ID = "pi_cheap"
	cheap.Amount = 100
	cheap.Metadata = map[string]string{"userid": "u1", "eventid": "ev_cheap"}

	intents := &fakeIntents{retrieved: map[string]*stripe.Intent{"pi_cheap": cheap}}
	payments := newFakePayments()
	lg := newFakeLedger()
	orch := NewOrchestrator(intents, payments, lg)

	// an intent paid for the cheap event must not buy the expensive one
	state, err := orch.Confirm(context.Background(), "u1", "ev_expensive", "pi_cheap")
	assert.ErrorIs(t, err, ErrIntentMismatch)
	assert.Equal(t, StateFailed, state)

	// nor may someone else confirm a leaked intent id
	state, err = orch.Confirm(context.Background(), "u2", "ev_cheap", "pi_cheap")
	assert.ErrorIs(t, err, ErrIntentMismatch)
	assert.Equal(t, StateFailed, state)

	assert.Empty(t, payments.recs)
	assert.Empty(t, lg.parts["u1"])
	assert.Empty(t, lg.parts["u2"])

	// the rightful pair still goes through
	state, err = orch.Confirm(context.Background(), "u1", "ev_cheap", "pi_cheap")
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)
}

func TestConfirmRejectsUnsucceededIntent(t *testing.T) {
	intents := &fakeIntents{retrieved: map[string]*stripe.Intent{
		"pi_test": {ID: "pi_test", Status: "requires_payment_method", Amount: 3000, Currency: "eur"},
	}}
	payments := newFakePayments()
	orch := NewOrchestrator(intents, payments, newFakeLedger())

	state, err := orch.Confirm(context.Background(), "u1", "ev1", "pi_test")
	assert.ErrorIs(t, err, ErrNotSucceeded)
	assert.Equal(t, StateFailed, state)
	assert.Empty(t, payments.recs)
}

func TestConfirmInterruptedSecondWrite(t *testing.T) {
	intents := &fakeIntents{retrieved: map[string]*stripe.Intent{"pi_test": succeededIntent()}}
	payments := newFakePayments()
	lg := newFakeLedger()
	lg.addErr = errors.New("connection reset")
	orch := NewOrchestrator(intents, payments, lg)

	state, err := orch.Confirm(context.Background(), "u1", "ev1", "pi_test")
	require.Error(t, err)
	assert.Equal(t, StateRecording, state)

	// the charge is persisted, flagged unrecorded, so the sweep can find it
	rec := payments.recs["pi_test"]
	require.NotNil(t, rec)
	assert.False(t, rec.ParticipationRecorded)
	assert.Empty(t, lg.parts["u1"])

	// the ledger comes back; a retry completes the saga
	lg.addErr = nil
	state, err = orch.Confirm(context.Background(), "u1", "ev1", "pi_test")
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)
	assert.True(t, payments.recs["pi_test"].ParticipationRecorded)
	assert.Len(t, lg.parts["u1"], 1)
}
