package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"eventura/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fakeUsers implements userCollection in memory. It interprets exactly the
// filter and update shapes the Store issues, applying each UpdateOne under a
// single lock the way the server applies a single atomic update.
type fakeUsers struct {
	mu   sync.Mutex
	docs map[string]*fakeUserDoc
}

type fakeUserDoc struct {
	favorites []string
	parts     []models.ParticipatedEvent
}

func newFakeUsers(userIDs ...string) *fakeUsers {
	f := &fakeUsers{docs: map[string]*fakeUserDoc{}}
	for _, id := range userIDs {
		f.docs[id] = &fakeUserDoc{}
	}
	return f
}

func (f *fakeUsers) matches(doc *fakeUserDoc, filter bson.M) bool {
	cond, ok := filter["participated_events"]
	if !ok {
		return true
	}
	m := cond.(bson.M)
	if not, ok := m["$not"]; ok {
		elem := not.(bson.M)["$elemMatch"].(bson.M)
		return !f.elemMatch(doc, elem)
	}
	if em, ok := m["$elemMatch"]; ok {
		return f.elemMatch(doc, em.(bson.M))
	}
	return false
}

func (f *fakeUsers) elemMatch(doc *fakeUserDoc, elem bson.M) bool {
	eventID := elem["eventid"].(string)
	for _, p := range doc.parts {
		if p.EventID != eventID {
			continue
		}
		if cond, ok := elem["status"]; ok {
			if ne, ok := cond.(bson.M)["$ne"]; ok && p.Status == ne.(string) {
				continue
			}
		}
		return true
	}
	return false
}

func (f *fakeUsers) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fl := filter.(bson.M)
	doc, ok := f.docs[fl["userid"].(string)]
	if !ok || !f.matches(doc, fl) {
		return &mongo.UpdateResult{}, nil
	}

	res := &mongo.UpdateResult{MatchedCount: 1}
	up := update.(bson.M)
	if pull, ok := up["$pull"]; ok {
		target := pull.(bson.M)["favorite_event_ids"].(string)
		for i, id := range doc.favorites {
			if id == target {
				doc.favorites = append(doc.favorites[:i], doc.favorites[i+1:]...)
				res.ModifiedCount = 1
				break
			}
		}
	}
	if add, ok := up["$addToSet"]; ok {
		target := add.(bson.M)["favorite_event_ids"].(string)
		present := false
		for _, id := range doc.favorites {
			if id == target {
				present = true
				break
			}
		}
		if !present {
			doc.favorites = append(doc.favorites, target)
			res.ModifiedCount = 1
		}
	}
	if push, ok := up["$push"]; ok {
		doc.parts = append(doc.parts, push.(bson.M)["participated_events"].(models.ParticipatedEvent))
		res.ModifiedCount = 1
	}
	if set, ok := up["$set"]; ok {
		status := set.(bson.M)["participated_events.$.status"].(string)
		elem := fl["participated_events"].(bson.M)["$elemMatch"].(bson.M)
		for i := range doc.parts {
			if doc.parts[i].EventID == elem["eventid"].(string) {
				doc.parts[i].Status = status
				res.ModifiedCount = 1
				break
			}
		}
	}
	return res, nil
}

func (f *fakeUsers) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fl := filter.(bson.M)
	doc, ok := f.docs[fl["userid"].(string)]
	if !ok || !f.matches(doc, fl) {
		return 0, nil
	}
	return 1, nil
}

func TestToggleFavorite(t *testing.T) {
	store := NewStore(newFakeUsers("u1"))
	ctx := context.Background()

	on, err := store.ToggleFavorite(ctx, "u1", "ev1")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = store.ToggleFavorite(ctx, "u1", "ev1")
	require.NoError(t, err)
	assert.False(t, on)

	_, err = store.ToggleFavorite(ctx, "nobody", "ev1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestToggleFavoriteConcurrent(t *testing.T) {
	users := newFakeUsers("u1")
	store := NewStore(users)
	ctx := context.Background()

	// Overlapping toggles must never leave a duplicate entry: each branch is
	// decided by the store, not by a stale read.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ToggleFavorite(ctx, "u1", "ev1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	users.mu.Lock()
	defer users.mu.Unlock()
	assert.LessOrEqual(t, len(users.docs["u1"].favorites), 1)
}

func TestAddParticipationDeduplicates(t *testing.T) {
	users := newFakeUsers("u1")
	store := NewStore(users)
	ctx := context.Background()

	part := models.ParticipatedEvent{EventID: "ev1", Status: models.StatusUpcoming, ParticipationDate: time.Now()}
	require.NoError(t, store.AddParticipation(ctx, "u1", part))

	err := store.AddParticipation(ctx, "u1", part)
	assert.ErrorIs(t, err, ErrAlreadyParticipating)

	assert.Len(t, users.docs["u1"].parts, 1)

	err = store.AddParticipation(ctx, "nobody", part)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAddParticipationAfterCancellation(t *testing.T) {
	store := NewStore(newFakeUsers("u1"))
	ctx := context.Background()

	part := models.ParticipatedEvent{EventID: "ev1", Status: models.StatusUpcoming}
	require.NoError(t, store.AddParticipation(ctx, "u1", part))
	require.NoError(t, store.UpdateParticipationStatus(ctx, "u1", "ev1", models.StatusCancelled))

	// A cancelled participation does not block re-joining.
	assert.NoError(t, store.AddParticipation(ctx, "u1", part))

	active, err := store.HasActiveParticipation(ctx, "u1", "ev1")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestHasActiveParticipation(t *testing.T) {
	store := NewStore(newFakeUsers("u1"))
	ctx := context.Background()

	active, err := store.HasActiveParticipation(ctx, "u1", "ev1")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, store.AddParticipation(ctx, "u1", models.ParticipatedEvent{EventID: "ev1", Status: models.StatusUpcoming}))

	active, err = store.HasActiveParticipation(ctx, "u1", "ev1")
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, store.UpdateParticipationStatus(ctx, "u1", "ev1", models.StatusCancelled))

	active, err = store.HasActiveParticipation(ctx, "u1", "ev1")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestUpdateParticipationStatus(t *testing.T) {
	users := newFakeUsers("u1")
	store := NewStore(users)
	ctx := context.Background()

	err := store.UpdateParticipationStatus(ctx, "u1", "ev1", models.StatusCompleted)
	assert.ErrorIs(t, err, ErrParticipationNotFound)

	require.NoError(t, store.AddParticipation(ctx, "u1", models.ParticipatedEvent{EventID: "ev1", Status: models.StatusUpcoming}))
	require.NoError(t, store.UpdateParticipationStatus(ctx, "u1", "ev1", models.StatusCompleted))
	assert.Equal(t, models.StatusCompleted, users.docs["u1"].parts[0].Status)
}
