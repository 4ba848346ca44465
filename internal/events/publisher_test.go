package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"syntra-ledger/internal/events"
)

func TestRedisPublisher_PublishesTypedAndAllChannels(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "ledger:events:record_created", "ledger:events:all")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	pub := events.NewRedisPublisher(client, "ledger")
	if err := pub.Publish(ctx, events.Event{EventType: events.RecordCreated, EntityID: 42}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		msgCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		msg, err := sub.ReceiveMessage(msgCtx)
		cancel()
		if err != nil {
			t.Fatalf("receive failed: %v", err)
		}
		var ev events.Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if ev.EntityID != 42 || ev.EventType != events.RecordCreated {
			t.Errorf("unexpected event %+v", ev)
		}
		if ev.Timestamp.IsZero() {
			t.Errorf("expected timestamp to be stamped")
		}
		seen[msg.Channel] = true
	}
	if !seen["ledger:events:record_created"] || !seen["ledger:events:all"] {
		t.Errorf("expected both channels, got %v", seen)
	}
}

func TestNopPublisher(t *testing.T) {
	var p events.Publisher = events.NopPublisher{}
	if err := p.Publish(context.Background(), events.Event{EventType: "x"}); err != nil {
		t.Errorf("nop publisher returned %v", err)
	}
}
