package notifier

import (
	"testing"
	"time"

	"heistctf/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidTopic(t *testing.T) {
	assert.True(t, ValidTopic("scoreboard"))
	assert.True(t, ValidTopic("wave-red"))
	assert.True(t, ValidTopic("wave-blue"))
	assert.True(t, ValidTopic("wave-purple"))
	assert.False(t, ValidTopic("wave-green"))
	assert.False(t, ValidTopic(""))
}

func TestHubBroadcastReachesTopicSubscribers(t *testing.T) {
	hub := NewHub()

	_, board := hub.Subscribe(TopicScoreboard)
	_, red := hub.Subscribe(WaveTopic(models.WaveRed))

	event := models.ScoreboardEvent{Type: "scoreboard-update", Timestamp: time.Now()}
	hub.Broadcast(TopicScoreboard, event)

	select {
	case got := <-board:
		assert.Equal(t, "scoreboard-update", got.Type)
	default:
		t.Fatal("scoreboard subscriber received nothing")
	}

	// The wave topic was not broadcast to.
	select {
	case <-red:
		t.Fatal("wave subscriber received an event for another topic")
	default:
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()

	id, events := hub.Subscribe(TopicScoreboard)
	require.Equal(t, 1, hub.SubscriberCount(TopicScoreboard))

	hub.Unsubscribe(TopicScoreboard, id)
	assert.Equal(t, 0, hub.SubscriberCount(TopicScoreboard))

	_, open := <-events
	assert.False(t, open)
}

func TestHubBroadcastSkipsFullBuffers(t *testing.T) {
	hub := NewHub()
	_, events := hub.Subscribe(TopicScoreboard)

	// Buffer is 8; extra events are dropped, never blocked on.
	for i := 0; i < 20; i++ {
		hub.Broadcast(TopicScoreboard, models.ScoreboardEvent{Type: "scoreboard-update"})
	}
	assert.Len(t, events, 8)
}
