package pay

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"eventura/middleware"
	"eventura/models"
	"eventura/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Idempotency replays mutating payment endpoints safely when the client
// supplies an Idempotency-Key header:
//   - no header: pass through
//   - first sighting: run the handler, cache status+body on the record
//   - replay with same request hash: return the cached response
//   - replay with different hash: 409
//   - replay while the first is in flight: run the handler; the DB-level
//     guards keep it idempotent
type Idempotency struct {
	Coll *mongo.Collection
}

func NewIdempotency(coll *mongo.Collection) *Idempotency {
	return &Idempotency{Coll: coll}
}

func (i *Idempotency) Wrap(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			next(w, r, ps)
			return
		}

		userID := middleware.UserID(r)

		bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		reqHash := requestHash(r, bodyBytes, userID)
		now := time.Now()
		rec := models.IdempotencyRecord{
			Key:         key,
			Method:      r.Method,
			Path:        r.URL.Path,
			UserID:      userID,
			RequestHash: reqHash,
			CreatedAt:   now,
			ExpiresAt:   now.Add(24 * time.Hour),
		}

		ctx := r.Context()
		_, err = i.Coll.InsertOne(ctx, rec)
		if err == nil {
			crw := newCaptureWriter(w)
			next(crw, r, ps)

			var parsed interface{}
			if err := json.Unmarshal(crw.body.Bytes(), &parsed); err != nil {
				parsed = crw.body.String()
			}
			_, _ = i.Coll.UpdateOne(ctx,
				bson.M{"key": key},
				bson.M{"$set": bson.M{"response": bson.M{"status": crw.status, "body": parsed}}},
			)
			return
		}
		if !isDuplicateKeyError(err) {
			http.Error(w, "idempotency lookup error", http.StatusInternalServerError)
			return
		}

		var existing models.IdempotencyRecord
		if err := i.Coll.FindOne(ctx, bson.M{"key": key}).Decode(&existing); err != nil {
			http.Error(w, "idempotency lookup error", http.StatusInternalServerError)
			return
		}
		if existing.RequestHash != reqHash {
			http.Error(w, "idempotency-key conflict", http.StatusConflict)
			return
		}
		if existing.Response != nil {
			status, _ := existing.Response["status"].(int32)
			if status == 0 {
				if f, ok := existing.Response["status"].(float64); ok {
					status = int32(f)
				}
			}
			utils.RespondWithJSON(w, int(status), existing.Response["body"])
			return
		}

		// In-flight twin; let it race, the guards hold.
		next(w, r, ps)
	}
}

func requestHash(r *http.Request, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func newCaptureWriter(w http.ResponseWriter) *captureWriter {
	return &captureWriter{ResponseWriter: w, status: http.StatusOK}
}

func (c *captureWriter) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
