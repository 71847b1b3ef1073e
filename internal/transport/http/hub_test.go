package http

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"quiz-engine/internal/domain"
)

func TestHub_PublishReachesOnlyTheScope(t *testing.T) {
	hub := NewHub()
	a := domain.SessionKey{HostID: "h", SessionID: "h0"}
	b := domain.SessionKey{HostID: "h", SessionID: "h1"}
	inA, inB := newClient("alice", 4), newClient("bob", 4)
	hub.Attach(a, inA)
	hub.Attach(b, inB)

	require.NoError(t, hub.Publish(context.Background(), a, domain.EventParticipantJoined{SessionID: "h0", Identity: "carol"}))

	require.Len(t, inA.send, 1)
	require.Empty(t, inB.send)

	var msg struct {
		Type    string                        `json:"type"`
		Payload domain.EventParticipantJoined `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(<-inA.send, &msg))
	require.Equal(t, domain.EventNameParticipantJoined, msg.Type)
	require.Equal(t, "carol", msg.Payload.Identity)
}

func TestHub_SlowClientDropsOldest(t *testing.T) {
	hub := NewHub()
	key := domain.SessionKey{HostID: "h", SessionID: "h0"}
	c := newClient("alice", 2)
	hub.Attach(key, c)

	for _, who := range []string{"a", "b", "c"} {
		require.NoError(t, hub.Publish(context.Background(), key, domain.EventParticipantLeft{SessionID: "h0", Identity: who}))
	}

	var got []string
	for len(c.send) > 0 {
		var msg struct {
			Payload domain.EventParticipantLeft `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(<-c.send, &msg))
		got = append(got, msg.Payload.Identity)
	}
	require.Equal(t, []string{"b", "c"}, got)
}

func TestHub_SessionEndClosesScope(t *testing.T) {
	hub := NewHub()
	key := domain.SessionKey{HostID: "h", SessionID: "h0"}
	c := newClient("alice", 4)
	hub.Attach(key, c)
	require.Equal(t, 1, hub.Size(key))

	require.NoError(t, hub.Publish(context.Background(), key, domain.EventSessionEnded{Result: domain.Result{HostID: "h", SessionID: "h0"}}))
	require.Equal(t, 0, hub.Size(key))
	require.Len(t, c.send, 1)
}

func TestHub_DetachAll(t *testing.T) {
	hub := NewHub()
	a := domain.SessionKey{HostID: "h", SessionID: "h0"}
	b := domain.SessionKey{HostID: "g", SessionID: "g0"}
	c, other := newClient("alice", 4), newClient("bob", 4)
	hub.Attach(a, c)
	hub.Attach(b, c)
	hub.Attach(b, other)

	hub.DetachAll(c)

	require.Equal(t, 0, hub.Size(a))
	require.Equal(t, 1, hub.Size(b))
}
