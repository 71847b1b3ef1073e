package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quiz-engine/internal/domain"
)

func TestNotifierPublishesToSessionChannel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mr := miniredis.RunT(t)
	client := newClient(mr)
	n := NewNotifier(client, "local")
	key := domain.SessionKey{HostID: "host", SessionID: "host0"}

	sub := client.Subscribe(ctx, n.Channel(key))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := n.Publish(ctx, key, domain.EventParticipantJoined{SessionID: "host0", Identity: "a"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if msg.Channel != "local:session:host:host0" {
		t.Fatalf("unexpected channel %s", msg.Channel)
	}

	var got struct {
		Type    string                        `json:"type"`
		Payload domain.EventParticipantJoined `json:"payload"`
	}
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != domain.EventNameParticipantJoined || got.Payload.Identity != "a" {
		t.Fatalf("unexpected notification %+v", got)
	}
}
