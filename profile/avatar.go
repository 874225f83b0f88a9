package profile

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"eventura/middleware"
	"eventura/utils"

	"github.com/disintegration/imaging"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

const avatarDir = "static/userpic"

// POST /api/profile/avatar
//
// Accepts a multipart image, stores a 256px thumbnail and records its URL on
// the profile.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.UserID(r)

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Unable to parse form")
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	switch header.Header.Get("Content-Type") {
	case "image/jpeg", "image/png", "image/webp":
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "Unsupported image type")
		return
	}

	img, err := imaging.Decode(file)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid image")
		return
	}
	thumb := imaging.Fill(img, 256, 256, imaging.Center, imaging.Lanczos)

	if err := os.MkdirAll(avatarDir, 0755); err != nil {
		log.Printf("UploadAvatar: mkdir: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save avatar")
		return
	}
	filename := fmt.Sprintf("%s_%d.jpg", userID, time.Now().Unix())
	path := filepath.Join(avatarDir, filename)
	if err := imaging.Save(thumb, path, imaging.JPEGQuality(85)); err != nil {
		log.Printf("UploadAvatar: save: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save avatar")
		return
	}

	avatarURL := "/" + avatarDir + "/" + filename
	_, err = h.DB.Users.UpdateOne(r.Context(),
		bson.M{"userid": userID},
		bson.M{"$set": bson.M{"avatar": avatarURL, "updated_at": time.Now()}},
	)
	if err != nil {
		log.Printf("UploadAvatar: update: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"avatar": avatarURL})
}
