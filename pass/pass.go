package pass

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"eventura/db"
	"eventura/ledger"
	"eventura/middleware"
	"eventura/models"
	"eventura/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson"
)

// Handler renders a paid participation as a signed QR pass, optionally
// wrapped in a PDF for printing.
type Handler struct {
	DB     *db.Mongo
	Ledger *ledger.Store
	secret []byte
}

func NewHandler(database *db.Mongo, lg *ledger.Store) *Handler {
	secret := os.Getenv("PASS_HMAC_SECRET")
	if secret == "" {
		secret = "dev-only-pass-secret"
	}
	return &Handler{DB: database, Ledger: lg, secret: []byte(secret)}
}

// Payload returns the signed pass content: userID|eventID|timestamp|signature.
func (h *Handler) Payload(userID, eventID string) string {
	data := fmt.Sprintf("%s|%s|%d", userID, eventID, time.Now().Unix())
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(data))
	return data + "|" + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// GET /api/participations/:eventid/pass.png
func (h *Handler) QRPass(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := middleware.UserID(r)
	eventID := ps.ByName("eventid")

	active, err := h.Ledger.HasActiveParticipation(r.Context(), userID, eventID)
	if err != nil || !active {
		utils.RespondWithError(w, http.StatusNotFound, "No participation for this event")
		return
	}

	png, err := qrcode.Encode(h.Payload(userID, eventID), qrcode.Medium, 256)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate pass")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// GET /api/participations/:eventid/pass.pdf
func (h *Handler) PDFPass(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := middleware.UserID(r)
	eventID := ps.ByName("eventid")

	active, err := h.Ledger.HasActiveParticipation(r.Context(), userID, eventID)
	if err != nil || !active {
		utils.RespondWithError(w, http.StatusNotFound, "No participation for this event")
		return
	}

	var event models.Event
	if err := h.DB.Events.FindOne(r.Context(), bson.M{"eventid": eventID}).Decode(&event); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Event not found")
		return
	}
	var user models.UserProfile
	if err := h.DB.Users.FindOne(r.Context(), bson.M{"userid": userID}).Decode(&user); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	qrPNG, err := qrcode.Encode(h.Payload(userID, eventID), qrcode.Medium, 256)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate pass")
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 12, "Eventura Pass")
	pdf.Ln(16)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Event: %s", event.ClubName))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Date: %s", event.EventDate.Format("02 Jan 2006 15:04")))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Name: %s %s", user.FirstName, user.LastName))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Location: %s", event.LocationName))
	pdf.Ln(12)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("pass-qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("pass-qr", 20, pdf.GetY(), 60, 60, false, opts, 0, "")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="eventura-pass.pdf"`)
	if err := pdf.Output(w); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to render PDF")
	}
}

// Scanned passes older than this are stale even when the signature holds.
const scanMaxAge = 24 * time.Hour

// POST /api/passes/verify
//
// Door-scan endpoint: checks a scanned payload and echoes who it admits.
func (h *Handler) VerifyScan(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Payload string `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Payload == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "payload is required")
		return
	}

	if !h.Verify(input.Payload, scanMaxAge) {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"valid": false})
		return
	}

	fields := strings.SplitN(input.Payload, "|", 4)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"valid":   true,
		"userid":  fields[0],
		"eventid": fields[1],
	})
}

// Verify checks a scanned payload's signature and age.
func (h *Handler) Verify(payload string, maxAge time.Duration) bool {
	parts := bytes.Split([]byte(payload), []byte("|"))
	if len(parts) != 4 {
		return false
	}
	data := bytes.Join(parts[:3], []byte("|"))
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(data)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), parts[3]) {
		return false
	}
	var ts int64
	if _, err := fmt.Sscanf(string(parts[2]), "%d", &ts); err != nil {
		return false
	}
	return time.Since(time.Unix(ts, 0)) <= maxAge
}
