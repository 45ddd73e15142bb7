package supabase

import (
	"sync"

	"op-pipeline-backend/internal/models"
)

// RealtimeClient fans job change events out to in-process subscribers (the
// SSE endpoint). The payload shape follows Supabase Realtime postgres_changes
// so browser clients can consume either source the same way.
type RealtimeClient struct {
	mu     sync.RWMutex
	subs   map[int]chan models.ChangeEvent
	nextID int
	closed bool
}

func NewRealtimeClient() *RealtimeClient {
	return &RealtimeClient{
		subs: make(map[int]chan models.ChangeEvent),
	}
}

// Publish never blocks: a subscriber whose buffer is full misses the event.
func (r *RealtimeClient) Publish(event models.ChangeEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ch := range r.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (r *RealtimeClient) Subscribe(buffer int) (<-chan models.ChangeEvent, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan models.ChangeEvent, buffer)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := r.nextID
	r.nextID++
	r.subs[id] = ch
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if _, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(ch)
			}
		})
	}
}

// Close ends every subscription.
func (r *RealtimeClient) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for id, ch := range r.subs {
		close(ch)
		delete(r.subs, id)
	}
}

func (r *RealtimeClient) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Event payloads
func ChangePayload(event models.ChangeEvent) map[string]interface{} {
	payload := map[string]interface{}{
		"schema":           "public",
		"table":            "jobs",
		"eventType":        string(event.Type),
		"commit_timestamp": event.At,
		"job_id":           event.JobID.String(),
	}
	if event.Job != nil {
		payload["new"] = event.Job
	} else {
		payload["old"] = map[string]interface{}{"id": event.JobID.String()}
	}
	return payload
}
