package models

import "time"

// Payment statuses as reported by the processor
const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// PaymentRecord is keyed by the processor's payment intent id. The
// ParticipationRecorded flag is flipped once the ledger append has landed;
// records left unflipped are picked up by the reconciliation sweep.
type PaymentRecord struct {
	PaymentID             string    `json:"payment_id" bson:"payment_id"`
	UserID                string    `json:"userid" bson:"userid"`
	EventID               string    `json:"eventid" bson:"eventid"`
	AmountMinor           int64     `json:"amount_minor" bson:"amount_minor"`
	Currency              string    `json:"currency" bson:"currency"`
	Status                string    `json:"status" bson:"status"`
	ParticipationRecorded bool      `json:"participation_recorded" bson:"participation_recorded"`
	CreatedAt             time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" bson:"updated_at"`
}

// IdempotencyRecord stores one Idempotency-Key replay entry.
type IdempotencyRecord struct {
	Key         string                 `json:"key" bson:"key"`
	Method      string                 `json:"method" bson:"method"`
	Path        string                 `json:"path" bson:"path"`
	UserID      string                 `json:"userid" bson:"userid"`
	RequestHash string                 `json:"request_hash" bson:"request_hash"`
	Response    map[string]interface{} `json:"response,omitempty" bson:"response,omitempty"`
	CreatedAt   time.Time              `json:"created_at" bson:"created_at"`
	ExpiresAt   time.Time              `json:"expires_at" bson:"expires_at"`
}
