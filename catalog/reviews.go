package catalog

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"eventura/middleware"
	"eventura/models"
	"eventura/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// POST /api/organizers/:organizerid/reviews
//
// Reviews are append-only; the rating counters ride in the same update.
func (h *Handler) AddReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	organizerID := ps.ByName("organizerid")
	userID := middleware.UserID(r)

	var input struct {
		Rating   int    `json:"rating"`
		Comment  string `json:"comment"`
		UserName string `json:"user_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if input.Rating < 1 || input.Rating > 5 {
		utils.RespondWithError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	review := models.Review{
		ReviewID:  utils.GetUUID(),
		UserID:    userID,
		UserName:  input.UserName,
		Rating:    input.Rating,
		Comment:   input.Comment,
		Timestamp: time.Now(),
	}

	// Push and counters land in one update; concurrent reviews never lose an
	// increment. The average is derived from the stored sum at read time.
	res, err := h.DB.Organizers.UpdateOne(r.Context(),
		bson.M{"organizerid": organizerID},
		bson.M{
			"$push": bson.M{"reviews": review},
			"$inc":  bson.M{"review_count": 1, "rating_sum": input.Rating},
		},
	)
	if err != nil {
		log.Printf("AddReview: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to add review")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Organizer not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, review)
}

// AverageRating derives the displayed rating from the stored counters.
func AverageRating(sum, count int) float64 {
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}
