package pay

import (
	"context"
	"testing"
	"time"

	"eventura/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orphanRecord(paymentID, userID, eventID string, age time.Duration) models.PaymentRecord {
	created := time.Now().Add(-age)
	return models.PaymentRecord{
		PaymentID:   paymentID,
		UserID:      userID,
		EventID:     eventID,
		AmountMinor: 3000,
		Currency:    "eur",
		Status:      models.PaymentSucceeded,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestSweepRepairsOrphanedPayments(t *testing.T) {
	payments := newFakePayments()
	lg := newFakeLedger()
	require.NoError(t, payments.InsertPayment(context.Background(), orphanRecord("pi_1", "u1", "ev1", 10*time.Minute)))
	require.NoError(t, payments.InsertPayment(context.Background(), orphanRecord("pi_2", "u2", "ev2", 10*time.Minute)))

	rc := NewReconciler(payments, lg)
	n, err := rc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.True(t, payments.recs["pi_1"].ParticipationRecorded)
	assert.True(t, payments.recs["pi_2"].ParticipationRecorded)
	require.Len(t, lg.parts["u1"], 1)
	assert.Equal(t, "ev1", lg.parts["u1"][0].EventID)
	require.NotNil(t, lg.parts["u1"][0].Payment)
	assert.Equal(t, "pi_1", lg.parts["u1"][0].Payment.PaymentID)

	// a second sweep finds nothing left to do
	n, err = rc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepLeavesFreshPaymentsAlone(t *testing.T) {
	payments := newFakePayments()
	lg := newFakeLedger()
	require.NoError(t, payments.InsertPayment(context.Background(), orphanRecord("pi_fresh", "u1", "ev1", 10*time.Second)))

	rc := NewReconciler(payments, lg)
	n, err := rc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "an in-flight confirm must not be raced by the sweep")
	assert.False(t, payments.recs["pi_fresh"].ParticipationRecorded)
}

func TestSweepTreatsExistingParticipationAsRecorded(t *testing.T) {
	payments := newFakePayments()
	lg := newFakeLedger()
	// the append landed but the flag flip was lost
	lg.parts["u1"] = []models.ParticipatedEvent{{EventID: "ev1", Status: models.StatusUpcoming}}
	require.NoError(t, payments.InsertPayment(context.Background(), orphanRecord("pi_1", "u1", "ev1", 10*time.Minute)))

	rc := NewReconciler(payments, lg)
	n, err := rc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, payments.recs["pi_1"].ParticipationRecorded)
	assert.Len(t, lg.parts["u1"], 1, "no duplicate participation appended")
}
