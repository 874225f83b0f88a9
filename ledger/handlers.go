package ledger

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"eventura/db"
	"eventura/middleware"
	"eventura/models"
	"eventura/mq"
	"eventura/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// Handler exposes the ledger over HTTP. Reads go straight to the users
// collection; writes go through Store.
type Handler struct {
	Store   *Store
	DB      *db.Mongo
	Emitter *mq.Emitter
}

func NewHandler(store *Store, database *db.Mongo, emitter *mq.Emitter) *Handler {
	return &Handler{Store: store, DB: database, Emitter: emitter}
}

// GET /api/user/favorites
func (h *Handler) GetFavorites(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.UserID(r)

	var user models.UserProfile
	if err := h.DB.Users.FindOne(r.Context(), bson.M{"userid": userID}).Decode(&user); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if user.FavoriteEventIDs == nil {
		user.FavoriteEventIDs = []string{}
	}
	utils.RespondWithJSON(w, http.StatusOK, user.FavoriteEventIDs)
}

// POST /api/user/favorites/:eventid/toggle
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := middleware.UserID(r)
	eventID := ps.ByName("eventid")

	favorited, err := h.Store.ToggleFavorite(r.Context(), userID, eventID)
	if err == ErrUserNotFound {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Printf("ToggleFavorite: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to toggle favorite")
		return
	}

	h.Emitter.Emit(r.Context(), mq.Event{
		Type: "favorite_toggled", UserID: userID, EventID: eventID,
	})

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"favorited": favorited})
}

// GET /api/user/participations
func (h *Handler) GetParticipations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.UserID(r)

	var user models.UserProfile
	if err := h.DB.Users.FindOne(r.Context(), bson.M{"userid": userID}).Decode(&user); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if user.ParticipatedEvents == nil {
		user.ParticipatedEvents = []models.ParticipatedEvent{}
	}
	utils.RespondWithJSON(w, http.StatusOK, user.ParticipatedEvents)
}

// PATCH /api/user/participations/:eventid/status
func (h *Handler) UpdateParticipationStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := middleware.UserID(r)
	eventID := ps.ByName("eventid")

	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	switch input.Status {
	case models.StatusUpcoming, models.StatusCompleted, models.StatusCancelled:
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown status")
		return
	}

	err := h.Store.UpdateParticipationStatus(r.Context(), userID, eventID, input.Status)
	if err == ErrParticipationNotFound {
		utils.RespondWithError(w, http.StatusNotFound, "Participation not found")
		return
	}
	if err != nil {
		log.Printf("UpdateParticipationStatus: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}

	h.Emitter.Emit(r.Context(), mq.Event{
		Type: "status_changed", UserID: userID, EventID: eventID, Detail: input.Status, At: time.Now(),
	})

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}
