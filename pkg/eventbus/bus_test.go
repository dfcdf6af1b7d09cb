package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNew_Defaults(t *testing.T) {
	b := New(Config{})

	if b.tick != defaultTick {
		t.Errorf("tick = %v, want %v", b.tick, defaultTick)
	}
	if b.drainTimeout != defaultDrainTimeout {
		t.Errorf("drainTimeout = %v, want %v", b.drainTimeout, defaultDrainTimeout)
	}
	if b.maxTimeouts != defaultMaxTimeouts {
		t.Errorf("maxTimeouts = %d, want %d", b.maxTimeouts, defaultMaxTimeouts)
	}
}

func TestPublish_CoalescesSameChannel(t *testing.T) {
	b := New(Config{Tick: 20 * time.Millisecond, Logger: zap.NewNop()})

	b.Publish("opportunities", json.RawMessage(`{"v":1}`))
	b.Publish("opportunities", json.RawMessage(`{"v":2}`))

	if len(b.dirty) != 1 {
		t.Errorf("expected one dirty channel, got %d", len(b.dirty))
	}
	if string(b.latest["opportunities"]) != `{"v":2}` {
		t.Errorf("expected latest payload to be the second publish, got %s", b.latest["opportunities"])
	}
}

func TestRun_FlushesDirtyChannelsToSubscriber(t *testing.T) {
	b := New(Config{Tick: 10 * time.Millisecond, Logger: zap.NewNop()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	envelopes, unsubscribe := b.Subscribe()
	defer unsubscribe()

	b.Publish("tasks", json.RawMessage(`{"id":"abc"}`))

	select {
	case env := <-envelopes:
		if env.Channel != "tasks" {
			t.Errorf("channel = %s, want tasks", env.Channel)
		}
		if string(env.Payload) != `{"id":"abc"}` {
			t.Errorf("payload = %s", env.Payload)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected an envelope within 500ms")
	}
}

func TestRun_NoFlushWhenNothingDirty(t *testing.T) {
	b := New(Config{Tick: 10 * time.Millisecond, Logger: zap.NewNop()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	envelopes, unsubscribe := b.Subscribe()
	defer unsubscribe()

	select {
	case env := <-envelopes:
		t.Fatalf("expected no envelope, got %+v", env)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	b := New(Config{Logger: zap.NewNop()})

	envelopes, unsubscribe := b.Subscribe()
	unsubscribe()

	_, ok := <-envelopes
	if ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
}

func TestDeliver_DisconnectsAfterConsecutiveTimeouts(t *testing.T) {
	b := New(Config{DrainTimeout: 5 * time.Millisecond, MaxTimeouts: 2, BufferSize: 1, Logger: zap.NewNop()})

	sub := &subscriber{ch: make(chan Envelope, 1)}
	b.subs[sub] = struct{}{}

	// Fill the buffer so every delivery attempt has to wait out drainTimeout.
	sub.ch <- Envelope{Channel: "x"}

	env := Envelope{Channel: "x", Payload: json.RawMessage(`{}`)}

	ok := b.deliver(sub, env)
	if !ok {
		t.Fatal("expected first timeout to not disconnect yet")
	}
	if sub.timeouts != 1 {
		t.Errorf("timeouts = %d, want 1", sub.timeouts)
	}

	ok = b.deliver(sub, env)
	if ok {
		t.Error("expected subscriber to be disconnected after reaching MaxTimeouts")
	}
	if _, stillPresent := b.subs[sub]; stillPresent {
		t.Error("expected subscriber to be removed from subs")
	}
}

func TestDeliver_ResetsTimeoutCountOnSuccess(t *testing.T) {
	b := New(Config{DrainTimeout: 5 * time.Millisecond, MaxTimeouts: 2, BufferSize: 2, Logger: zap.NewNop()})

	sub := &subscriber{ch: make(chan Envelope, 2), timeouts: 1}
	b.subs[sub] = struct{}{}

	ok := b.deliver(sub, Envelope{Channel: "x"})
	if !ok {
		t.Fatal("expected delivery to succeed")
	}
	if sub.timeouts != 0 {
		t.Errorf("timeouts = %d, want 0 after a successful delivery", sub.timeouts)
	}
}
