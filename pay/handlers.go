package pay

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"eventura/db"
	"eventura/middleware"
	"eventura/models"
	"eventura/mq"
	"eventura/rdx"
	"eventura/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const payLockTTL = 2 * time.Minute

// Handler exposes the payment flow over HTTP.
type Handler struct {
	Orch    *Orchestrator
	DB      *db.Mongo
	Redis   *rdx.Redis
	Emitter *mq.Emitter
}

func NewHandler(orch *Orchestrator, database *db.Mongo, redis *rdx.Redis, emitter *mq.Emitter) *Handler {
	return &Handler{Orch: orch, DB: database, Redis: redis, Emitter: emitter}
}

// POST /api/payments/event/:eventid/intent
//
// Runs the guards server-side (identity, no existing participation), parses
// the display price and returns the processor's client secret. The Redis lock
// absorbs double-taps before the button disables.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := middleware.UserID(r)
	eventID := ps.ByName("eventid")
	ctx := r.Context()

	lockKey := "paylock:" + userID + ":" + eventID
	ok, err := h.Redis.AcquireLock(ctx, lockKey, payLockTTL)
	if err != nil {
		log.Printf("CreateIntent: lock: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to start payment")
		return
	}
	if !ok {
		utils.RespondWithError(w, http.StatusConflict, "A payment for this event is already in progress")
		return
	}

	var event models.Event
	err = h.DB.Events.FindOne(ctx, bson.M{"eventid": eventID}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		h.releaseLock(lockKey)
		utils.RespondWithError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		h.releaseLock(lockKey)
		log.Printf("CreateIntent: fetch event: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch event")
		return
	}

	intent, _, err := h.Orch.Begin(ctx, userID, &event)
	if err != nil {
		h.releaseLock(lockKey)
		switch {
		case errors.Is(err, ErrAlreadyPaid):
			utils.RespondWithError(w, http.StatusConflict, "You already participate in this event")
		case errors.Is(err, ErrUnparseablePrice):
			log.Printf("CreateIntent: %v", err)
			utils.RespondWithError(w, http.StatusUnprocessableEntity, "Event price cannot be charged")
		default:
			log.Printf("CreateIntent: %v", err)
			utils.RespondWithError(w, http.StatusBadGateway, "Failed to create payment intent")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"clientSecret": intent.ClientSecret,
		"paymentId":    intent.ID,
		"amount":       intent.Amount,
		"currency":     intent.Currency,
	})
}

// POST /api/payments/event/:eventid/confirm
//
// Called after the client's payment sheet succeeds. Recording is detached
// from the request context so a dropped connection cannot interrupt between
// the two writes.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := middleware.UserID(r)
	eventID := ps.ByName("eventid")

	var input struct {
		PaymentID string `json:"paymentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.PaymentID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "paymentId is required")
		return
	}

	lockKey := "paylock:" + userID + ":" + eventID
	defer h.releaseLock(lockKey)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 30*time.Second)
	defer cancel()

	state, err := h.Orch.Confirm(ctx, userID, eventID, input.PaymentID)
	switch state {
	case StateDone:
		h.Emitter.Emit(ctx, mq.Event{
			Type: "participation_added", UserID: userID, EventID: eventID,
		})
		h.Emitter.Emit(ctx, mq.Event{
			Type: "payment_recorded", UserID: userID, EventID: eventID, Detail: input.PaymentID,
		})
		utils.SendResponse(w, http.StatusOK, utils.M{"state": state}, "Participation recorded", nil)
	case StateRecording:
		// Payment persisted, ledger append pending: the reconciler owns it now.
		log.Printf("Confirm: payment %s recorded but participation pending: %v", input.PaymentID, err)
		utils.SendResponse(w, http.StatusAccepted, utils.M{"state": state},
			"Payment recorded; participation will appear shortly", nil)
	default:
		log.Printf("Confirm: %v", err)
		if errors.Is(err, ErrNotSucceeded) {
			utils.RespondWithError(w, http.StatusConflict, "Payment not completed")
			return
		}
		if errors.Is(err, ErrIntentMismatch) {
			utils.RespondWithError(w, http.StatusForbidden, "Payment does not match this event")
			return
		}
		utils.RespondWithError(w, http.StatusBadGateway, "Failed to confirm payment")
	}
}

func (h *Handler) releaseLock(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.Redis.ReleaseLock(ctx, key); err != nil {
		log.Printf("releaseLock %s: %v", key, err)
	}
}
