package profile

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"eventura/db"
	"eventura/middleware"
	"eventura/models"
	"eventura/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Handler serves the user profile endpoints.
type Handler struct {
	DB *db.Mongo
}

func NewHandler(database *db.Mongo) *Handler {
	return &Handler{DB: database}
}

// PUT /api/profile
//
// Completes signup: the identity exists already, this fills in the personal
// fields collected by the profile screen.
func (h *Handler) CompleteProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.UserID(r)

	var input struct {
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
		DateOfBirth     string `json:"date_of_birth"` // YYYY-MM-DD
		Gender          string `json:"gender"`
		Newsletter      bool   `json:"newsletter"`
		PrivacyAccepted bool   `json:"privacy_accepted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if input.FirstName == "" || input.LastName == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "First and last name are required")
		return
	}
	if input.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", input.DateOfBirth); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
			return
		}
	}
	if !input.PrivacyAccepted {
		utils.RespondWithError(w, http.StatusBadRequest, "Privacy policy must be accepted")
		return
	}

	_, err := h.DB.Users.UpdateOne(r.Context(),
		bson.M{"userid": userID},
		bson.M{"$set": bson.M{
			"first_name":       input.FirstName,
			"last_name":        input.LastName,
			"date_of_birth":    input.DateOfBirth,
			"gender":           input.Gender,
			"newsletter":       input.Newsletter,
			"privacy_accepted": input.PrivacyAccepted,
			"updated_at":       time.Now(),
		}},
	)
	if err != nil {
		log.Printf("CompleteProfile: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	h.respondWithProfile(w, r, userID)
}

// GET /api/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.respondWithProfile(w, r, middleware.UserID(r))
}

// PATCH /api/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.UserID(r)

	var input map[string]any
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	// Only the editable profile fields may be patched
	allowed := map[string]bool{
		"first_name": true, "last_name": true, "date_of_birth": true,
		"gender": true, "newsletter": true,
	}
	updates := bson.M{}
	for k, v := range input {
		if allowed[k] {
			updates[k] = v
		}
	}
	if len(updates) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "No editable fields in request")
		return
	}
	updates["updated_at"] = time.Now()

	_, err := h.DB.Users.UpdateOne(r.Context(), bson.M{"userid": userID}, bson.M{"$set": updates})
	if err != nil {
		log.Printf("UpdateProfile: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	h.respondWithProfile(w, r, userID)
}

// PUT /api/profile/preferences
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.UserID(r)

	var prefs models.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if prefs.Categories == nil {
		prefs.Categories = []string{}
	}

	_, err := h.DB.Users.UpdateOne(r.Context(),
		bson.M{"userid": userID},
		bson.M{"$set": bson.M{"preferences": prefs, "updated_at": time.Now()}},
	)
	if err != nil {
		log.Printf("UpdatePreferences: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update preferences")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, prefs)
}

func (h *Handler) respondWithProfile(w http.ResponseWriter, r *http.Request, userID string) {
	var user models.UserProfile
	err := h.DB.Users.FindOne(r.Context(), bson.M{"userid": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Profile not found")
		return
	}
	if err != nil {
		log.Printf("respondWithProfile: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}
