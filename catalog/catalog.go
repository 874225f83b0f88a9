package catalog

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"eventura/db"
	"eventura/models"
	"eventura/rdx"
	"eventura/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const eventCacheTTL = 60 * time.Second

// Handler serves the read-only event/organizer catalog.
type Handler struct {
	DB    *db.Mongo
	Redis *rdx.Redis
	Live  *Hub
}

func NewHandler(database *db.Mongo, redis *rdx.Redis, live *Hub) *Handler {
	return &Handler{DB: database, Redis: redis, Live: live}
}

// GET /api/events
//
// Optional query filters: type, organizer. Sorted by event date; the store's
// default document order is not meaningful to clients.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter := bson.M{}
	if t := r.URL.Query().Get("type"); t != "" {
		filter["event_type"] = t
	}
	if org := r.URL.Query().Get("organizer"); org != "" {
		filter["organizerid"] = org
	}

	ctx := r.Context()
	cur, err := h.DB.Events.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "event_date", Value: 1}}))
	if err != nil {
		log.Printf("GetEvents: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch events")
		return
	}
	defer cur.Close(ctx)

	var events []models.Event
	if err := cur.All(ctx, &events); err != nil {
		log.Printf("GetEvents decode: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode events")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, ShapeEvents(events))
}

// ShapeEvents guarantees the empty catalog renders as [] rather than null.
func ShapeEvents(events []models.Event) []models.Event {
	if events == nil {
		return []models.Event{}
	}
	return events
}

// GET /api/events/:eventid
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	eventID := ps.ByName("eventid")
	ctx := r.Context()

	if cached, err := h.Redis.Get(ctx, "event:"+eventID); err == nil && cached != "" {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(cached))
		return
	}

	event, err := h.FetchEvent(ctx, eventID)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		log.Printf("GetEvent: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch event")
		return
	}

	if data, err := json.Marshal(event); err == nil {
		if err := h.Redis.Set(ctx, "event:"+eventID, string(data), eventCacheTTL); err != nil {
			log.Printf("GetEvent cache: %v", err)
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, event)
}

// FetchEvent loads a single event document.
func (h *Handler) FetchEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	if err := h.DB.Events.FindOne(ctx, bson.M{"eventid": eventID}).Decode(&event); err != nil {
		return nil, err
	}
	return &event, nil
}

// GET /api/organizers/:organizerid
func (h *Handler) GetOrganizer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	organizerID := ps.ByName("organizerid")

	var organizer models.Organizer
	err := h.DB.Organizers.FindOne(r.Context(), bson.M{"organizerid": organizerID}).Decode(&organizer)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Organizer not found")
		return
	}
	if err != nil {
		log.Printf("GetOrganizer: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch organizer")
		return
	}
	if organizer.Reviews == nil {
		organizer.Reviews = []models.Review{}
	}
	organizer.Rating = AverageRating(organizer.RatingSum, organizer.ReviewCount)

	utils.RespondWithJSON(w, http.StatusOK, organizer)
}
