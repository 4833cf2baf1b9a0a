package notifier

import (
	"sync"

	"heistctf/internal/models"

	"github.com/google/uuid"
)

const (
	// TopicScoreboard receives every invalidation event.
	TopicScoreboard = "scoreboard"
	// Wave topics are "wave-red", "wave-blue", "wave-purple".
	waveTopicPrefix = "wave-"
)

func WaveTopic(wave models.Wave) string {
	return waveTopicPrefix + string(wave)
}

func ValidTopic(topic string) bool {
	if topic == TopicScoreboard {
		return true
	}
	for _, w := range models.Waves() {
		if topic == WaveTopic(w) {
			return true
		}
	}
	return false
}

// Hub fans scoreboard events out to subscribed clients. Delivery is
// best-effort: a subscriber with a full buffer misses the event and
// catches up on its next re-fetch.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[string]chan models.ScoreboardEvent
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[string]chan models.ScoreboardEvent)}
}

func (h *Hub) Subscribe(topic string) (string, <-chan models.ScoreboardEvent) {
	id := uuid.NewString()
	ch := make(chan models.ScoreboardEvent, 8)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]chan models.ScoreboardEvent)
	}
	h.topics[topic][id] = ch
	return id, ch
}

func (h *Hub) Unsubscribe(topic, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[topic]; ok {
		if ch, ok := subs[id]; ok {
			delete(subs, id)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *Hub) Broadcast(topic string, event models.ScoreboardEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.topics[topic] {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
