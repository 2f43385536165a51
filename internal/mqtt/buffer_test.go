package mqtt

import (
	"fmt"
	"testing"
	"time"

	"github.com/sweeney/binwatch/internal/eventlog"
)

func entry(i int) eventlog.Entry {
	return eventlog.Entry{
		Timestamp: time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
		Message:   fmt.Sprintf("event %d", i),
	}
}

func messagesOf(entries []eventlog.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

func TestEventBufferTakeEmpty(t *testing.T) {
	b := newEventBuffer(4)
	got, dropped := b.take()
	if got != nil || dropped != 0 {
		t.Errorf("empty take: got %v, dropped %d", got, dropped)
	}
}

func TestEventBufferKeepsOrder(t *testing.T) {
	b := newEventBuffer(4)
	for i := 0; i < 3; i++ {
		b.add(entry(i))
	}
	if b.len() != 3 {
		t.Fatalf("len: got %d, want 3", b.len())
	}

	got, dropped := b.take()
	if dropped != 0 {
		t.Errorf("dropped: got %d, want 0", dropped)
	}
	want := []string{"event 0", "event 1", "event 2"}
	if fmt.Sprint(messagesOf(got)) != fmt.Sprint(want) {
		t.Errorf("take: got %v, want %v", messagesOf(got), want)
	}
	if !got[1].Timestamp.Equal(entry(1).Timestamp) {
		t.Errorf("timestamp not preserved: %v", got[1].Timestamp)
	}
	if b.len() != 0 {
		t.Errorf("len after take: got %d", b.len())
	}
}

func TestEventBufferOverflowDropsOldest(t *testing.T) {
	b := newEventBuffer(3)
	for i := 0; i < 7; i++ {
		b.add(entry(i))
	}

	got, dropped := b.take()
	if dropped != 4 {
		t.Errorf("dropped: got %d, want 4", dropped)
	}
	want := []string{"event 4", "event 5", "event 6"}
	if fmt.Sprint(messagesOf(got)) != fmt.Sprint(want) {
		t.Errorf("take: got %v, want %v", messagesOf(got), want)
	}

	// The drop count resets with each take.
	b.add(entry(9))
	if _, dropped := b.take(); dropped != 0 {
		t.Errorf("dropped after reset: got %d", dropped)
	}
}

func TestEventBufferReuseAfterTake(t *testing.T) {
	b := newEventBuffer(3)
	b.add(entry(0))
	b.add(entry(1))
	b.take()

	for i := 10; i < 13; i++ {
		b.add(entry(i))
	}
	got, _ := b.take()
	want := []string{"event 10", "event 11", "event 12"}
	if fmt.Sprint(messagesOf(got)) != fmt.Sprint(want) {
		t.Errorf("second cycle: got %v, want %v", messagesOf(got), want)
	}
}

func TestEventBufferDefaultCapacity(t *testing.T) {
	b := newEventBuffer(0)
	for i := 0; i < DefaultBufferSize+1; i++ {
		b.add(entry(i % 60))
	}
	got, dropped := b.take()
	if len(got) != DefaultBufferSize || dropped != 1 {
		t.Errorf("got %d entries, %d dropped; want %d, 1", len(got), dropped, DefaultBufferSize)
	}
}
