package ledger

import (
	"context"
	"errors"
	"fmt"

	"eventura/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrAlreadyParticipating  = errors.New("user already participates in this event")
	ErrParticipationNotFound = errors.New("participation not found")
)

// userCollection is the slice of *mongo.Collection the store mutates through.
// Kept narrow so tests can substitute an in-memory implementation.
type userCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// Store mutates the per-user participation ledger. Every operation is a
// single server-side atomic update; there is no read-then-decide window on
// the client side.
type Store struct {
	users userCollection
}

func NewStore(users userCollection) *Store {
	return &Store{users: users}
}

// ToggleFavorite removes the event from the user's favorites if present,
// otherwise adds it. The branch is decided by the store ($pull modified
// count), not by a possibly stale snapshot, so overlapping toggles serialize.
// Returns whether the event is favorited after the call.
func (s *Store) ToggleFavorite(ctx context.Context, userID, eventID string) (bool, error) {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"userid": userID},
		bson.M{"$pull": bson.M{"favorite_event_ids": eventID}},
	)
	if err != nil {
		return false, fmt.Errorf("pull favorite: %w", err)
	}
	if res.MatchedCount == 0 {
		return false, ErrUserNotFound
	}
	if res.ModifiedCount > 0 {
		return false, nil // was favorited, now removed
	}

	// $addToSet keeps the list a set even if two adds race
	if _, err := s.users.UpdateOne(ctx,
		bson.M{"userid": userID},
		bson.M{"$addToSet": bson.M{"favorite_event_ids": eventID}},
	); err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	return true, nil
}

// AddParticipation appends a participation record unless the user already
// holds a non-cancelled one for the same event. The guard lives in the update
// filter, so a duplicate call matches zero documents instead of appending.
func (s *Store) AddParticipation(ctx context.Context, userID string, part models.ParticipatedEvent) error {
	filter := bson.M{
		"userid": userID,
		"participated_events": bson.M{
			"$not": bson.M{"$elemMatch": bson.M{
				"eventid": part.EventID,
				"status":  bson.M{"$ne": models.StatusCancelled},
			}},
		},
	}
	res, err := s.users.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"participated_events": part}})
	if err != nil {
		return fmt.Errorf("append participation: %w", err)
	}
	if res.MatchedCount == 0 {
		exists, err := s.users.CountDocuments(ctx, bson.M{"userid": userID})
		if err != nil {
			return fmt.Errorf("post-check user: %w", err)
		}
		if exists == 0 {
			return ErrUserNotFound
		}
		return ErrAlreadyParticipating
	}
	return nil
}

// HasActiveParticipation reports whether a non-cancelled participation exists
// for the (user, event) pair.
func (s *Store) HasActiveParticipation(ctx context.Context, userID, eventID string) (bool, error) {
	n, err := s.users.CountDocuments(ctx, bson.M{
		"userid": userID,
		"participated_events": bson.M{"$elemMatch": bson.M{
			"eventid": eventID,
			"status":  bson.M{"$ne": models.StatusCancelled},
		}},
	})
	if err != nil {
		return false, fmt.Errorf("count participation: %w", err)
	}
	return n > 0, nil
}

// UpdateParticipationStatus sets the status of the matched participation via
// a positional update rather than rewriting the whole list.
func (s *Store) UpdateParticipationStatus(ctx context.Context, userID, eventID, status string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{
			"userid":              userID,
			"participated_events": bson.M{"$elemMatch": bson.M{"eventid": eventID}},
		},
		bson.M{"$set": bson.M{"participated_events.$.status": status}},
	)
	if err != nil {
		return fmt.Errorf("update participation status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrParticipationNotFound
	}
	return nil
}
