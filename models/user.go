package models

import "time"

// Participation statuses
const (
	StatusUpcoming  = "upcoming"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type UserProfile struct {
	UserID            string             `json:"userid" bson:"userid"`
	Email             string             `json:"email" bson:"email"`
	Password          string             `json:"-" bson:"password"`
	EmailVerified     bool               `json:"email_verified" bson:"email_verified"`
	FirstName         string             `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName          string             `json:"last_name,omitempty" bson:"last_name,omitempty"`
	DateOfBirth       string             `json:"date_of_birth,omitempty" bson:"date_of_birth,omitempty"` // YYYY-MM-DD
	Gender            string             `json:"gender,omitempty" bson:"gender,omitempty"`
	Newsletter        bool               `json:"newsletter" bson:"newsletter"`
	PrivacyAccepted   bool               `json:"privacy_accepted" bson:"privacy_accepted"`
	Avatar            string             `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Preferences       *Preferences       `json:"preferences,omitempty" bson:"preferences,omitempty"`
	FavoriteEventIDs  []string           `json:"favorite_event_ids" bson:"favorite_event_ids"`
	ParticipatedEvents []ParticipatedEvent `json:"participated_events" bson:"participated_events"`
	RefreshToken      string             `json:"-" bson:"refresh_token,omitempty"`
	RefreshExpiry     time.Time          `json:"-" bson:"refresh_expiry,omitempty"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" bson:"updated_at"`
	LastLogin         time.Time          `json:"last_login" bson:"last_login"`
}

type Preferences struct {
	Categories    []string            `json:"categories" bson:"categories"`
	Subcategories map[string][]string `json:"subcategories" bson:"subcategories"`
}

type ParticipatedEvent struct {
	EventID           string          `json:"eventid" bson:"eventid"`
	Status            string          `json:"status" bson:"status"`
	ParticipationDate time.Time       `json:"participation_date" bson:"participation_date"`
	Payment           *PaymentDetails `json:"payment,omitempty" bson:"payment,omitempty"`
}

type PaymentDetails struct {
	PaymentID   string `json:"payment_id" bson:"payment_id"`
	AmountMinor int64  `json:"amount_minor" bson:"amount_minor"`
	Currency    string `json:"currency" bson:"currency"`
	Status      string `json:"status" bson:"status"`
}
