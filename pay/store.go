package pay

import (
	"context"
	"time"

	"eventura/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoPayments backs PaymentStore with the payments collection. The unique
// index on payment_id turns replayed inserts into ErrDuplicatePayment.
type MongoPayments struct {
	Coll *mongo.Collection
}

func NewMongoPayments(coll *mongo.Collection) *MongoPayments {
	return &MongoPayments{Coll: coll}
}

func (m *MongoPayments) InsertPayment(ctx context.Context, rec models.PaymentRecord) error {
	_, err := m.Coll.InsertOne(ctx, rec)
	if isDuplicateKeyError(err) {
		return ErrDuplicatePayment
	}
	return err
}

func (m *MongoPayments) MarkParticipationRecorded(ctx context.Context, paymentID string) error {
	_, err := m.Coll.UpdateOne(ctx,
		bson.M{"payment_id": paymentID},
		bson.M{"$set": bson.M{"participation_recorded": true, "updated_at": time.Now()}},
	)
	return err
}

func (m *MongoPayments) FindUnrecorded(ctx context.Context, olderThan time.Time) ([]models.PaymentRecord, error) {
	cur, err := m.Coll.Find(ctx, bson.M{
		"participation_recorded": false,
		"status":                 models.PaymentSucceeded,
		"created_at":             bson.M{"$lt": olderThan},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recs []models.PaymentRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if we, ok := err.(mongo.WriteException); ok {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
