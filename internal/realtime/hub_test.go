package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

type capturePub struct {
	published []string
}

func (p *capturePub) PublishEvent(_ uuid.UUID, event string, _ []byte) error {
	p.published = append(p.published, event)
	return nil
}

func newTestClient(eventID uuid.UUID) *Client {
	return &Client{
		ID:      uuid.New().String(),
		EventID: eventID,
		send:    make(chan WSMessage, 8),
	}
}

func TestHubBroadcastReachesOnlyEventRoom(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	eventA, eventB := uuid.New(), uuid.New()
	a := newTestClient(eventA)
	b := newTestClient(eventB)
	hub.Register(a)
	hub.Register(b)

	hub.BroadcastToEvent(eventA, "finish_recorded", map[string]int{"dorsal_number": 17})

	select {
	case msg := <-a.send:
		if msg.Event != "finish_recorded" {
			t.Errorf("event = %q, want finish_recorded", msg.Event)
		}
		var payload struct {
			Dorsal int `json:"dorsal_number"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.Dorsal != 17 {
			t.Errorf("payload = %s (err %v), want dorsal 17", msg.Data, err)
		}
	default:
		t.Fatal("client in the event room received nothing")
	}
	select {
	case msg := <-b.send:
		t.Errorf("client in another event room received %q", msg.Event)
	default:
	}
}

func TestHubUnregisterEmptiesRoom(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	eventID := uuid.New()
	c := newTestClient(eventID)
	hub.Register(c)
	if got := hub.SpectatorCount(eventID); got != 1 {
		t.Fatalf("spectator count = %d, want 1", got)
	}
	hub.Unregister(c)
	if got := hub.SpectatorCount(eventID); got != 0 {
		t.Errorf("spectator count after leave = %d, want 0", got)
	}
	// Broadcasting into an empty room must be a no-op.
	hub.BroadcastToEvent(eventID, "timer_started", nil)
}

func TestHubPublishesInsteadOfLocalWhenRedisWired(t *testing.T) {
	pub := &capturePub{}
	hub := NewHub(nil, pub, nil)
	eventID := uuid.New()
	c := newTestClient(eventID)
	hub.Register(c)

	hub.BroadcastToEvent(eventID, "finish_recorded", map[string]int{"dorsal_number": 3})

	if len(pub.published) != 1 || pub.published[0] != "finish_recorded" {
		t.Errorf("published = %v, want one finish_recorded", pub.published)
	}
	select {
	case <-c.send:
		t.Error("local client received a direct message; delivery should go through pub/sub")
	default:
	}
}
