package session

import (
	"encoding/json"
	"fmt"
	"net/http"

	"eventura/middleware"

	"github.com/julienschmidt/httprouter"
)

// StreamHandler serves auth state snapshots over SSE so clients can react to
// identity transitions (login elsewhere, verification, logout).
func (b *Broker) StreamHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.UserID(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := b.Subscribe(userID)
	defer sub.Cancel()

	for {
		select {
		case snap := <-sub.C:
			payload, _ := json.Marshal(snap)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
