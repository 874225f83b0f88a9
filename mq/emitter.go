package mq

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"eventura/rdx"
)

const channel = "participation-events"

// Event is a ledger/payment transition published for live subscribers.
type Event struct {
	Type    string    `json:"type"` // participation_added, status_changed, favorite_toggled, payment_recorded
	UserID  string    `json:"userid"`
	EventID string    `json:"eventid"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

// Emitter publishes events to Redis pub/sub so every process sees them.
type Emitter struct {
	redis *rdx.Redis
}

func NewEmitter(redis *rdx.Redis) *Emitter {
	return &Emitter{redis: redis}
}

func (e *Emitter) Emit(ctx context.Context, evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("[Emit] marshal failed: %v", err)
		return
	}
	if err := e.redis.Conn.Publish(ctx, channel, data).Err(); err != nil {
		log.Printf("[Emit] publish failed: %v", err)
	}
}

// StartWorker subscribes to the event channel and dispatches each event to
// the handler until ctx is cancelled.
func (e *Emitter) StartWorker(ctx context.Context, handle func(Event)) {
	sub := e.redis.Conn.Subscribe(ctx, channel)
	defer sub.Close()
	ch := sub.Channel()

	log.Println("[mq] listening for participation events")
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				log.Printf("[mq] bad payload: %v", err)
				continue
			}
			handle(evt)
		case <-ctx.Done():
			return
		}
	}
}
