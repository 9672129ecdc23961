package chat

import (
	"testing"
	"time"

	messagestore "github.com/dalemusser/ghostwire/internal/app/store/messages"
)

func msgAt(id, content string, at time.Time) messagestore.EnrichedMessage {
	return messagestore.EnrichedMessage{
		ID:        id,
		SenderID:  "sender",
		TargetID:  "group-1",
		Content:   content,
		Type:      "group",
		CreatedAt: at,
		Username:  "alice",
	}
}

func TestSeedDiscardsOverlap(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	socket := []messagestore.EnrichedMessage{
		msgAt("m1", "first", base),
		msgAt("m2", "second", base.Add(time.Minute)),
	}
	rest := []messagestore.EnrichedMessage{
		msgAt("m1", "first", base),
		msgAt("m2", "second", base.Add(time.Minute)),
		msgAt("m3", "third", base.Add(2*time.Minute)),
	}

	r := NewReconciler()
	if added := r.Merge(socket); len(added) != 2 {
		t.Fatalf("socket push added %d, want 2", len(added))
	}
	added := r.Seed(rest)
	if len(added) != 1 || added[0].ID != "m3" {
		t.Fatalf("seed added %v, want only m3", added)
	}
	if r.Len() != 3 {
		t.Fatalf("timeline holds %d messages, want 3", r.Len())
	}
}

func TestHistoryPushAfterSeedIsDiscarded(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r := NewReconciler()
	r.Seed([]messagestore.EnrichedMessage{
		msgAt("m1", "first", base),
		msgAt("m2", "second", base.Add(time.Minute)),
	})

	// The push carries an unseen m3, but the REST view already rendered;
	// the whole batch is dropped rather than merged.
	push := []messagestore.EnrichedMessage{
		msgAt("m2", "second", base.Add(time.Minute)),
		msgAt("m3", "third", base.Add(2*time.Minute)),
	}
	if added := r.Merge(push); added != nil {
		t.Fatalf("post-seed push added %v, want nothing", added)
	}
	if r.Len() != 2 {
		t.Fatalf("timeline holds %d messages, want 2", r.Len())
	}

	// Live delivery is unaffected.
	if !r.Apply(msgAt("m4", "fourth", base.Add(3*time.Minute))) {
		t.Fatal("live message rejected after seeding")
	}
}

func TestMergeKeepsChronologicalOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r := NewReconciler()
	r.Merge([]messagestore.EnrichedMessage{
		msgAt("m2", "second", base.Add(time.Minute)),
		msgAt("m4", "fourth", base.Add(3*time.Minute)),
	})
	// A late batch fills the gaps.
	r.Merge([]messagestore.EnrichedMessage{
		msgAt("m1", "first", base),
		msgAt("m3", "third", base.Add(2*time.Minute)),
	})

	want := []string{"m1", "m2", "m3", "m4"}
	timeline := r.Timeline()
	if len(timeline) != len(want) {
		t.Fatalf("timeline has %d entries, want %d", len(timeline), len(want))
	}
	for i, id := range want {
		if timeline[i].ID != id {
			t.Errorf("timeline[%d] = %s, want %s", i, timeline[i].ID, id)
		}
	}
}

func TestApplyDeduplicatesLiveMessages(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := msgAt("m1", "hello", base)

	r := NewReconciler()
	if !r.Apply(m) {
		t.Fatal("first Apply returned false, want true")
	}
	if r.Apply(m) {
		t.Fatal("second Apply returned true for a duplicate")
	}

	// A live message already delivered in a history batch is a duplicate too.
	r.Merge([]messagestore.EnrichedMessage{msgAt("m2", "again", base.Add(time.Second))})
	if r.Apply(msgAt("m2", "again", base.Add(time.Second))) {
		t.Fatal("Apply returned true for a message the history batch delivered")
	}
}

func TestTimelineReturnsCopy(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewReconciler()
	r.Apply(msgAt("m1", "hello", base))

	got := r.Timeline()
	got[0].Content = "mutated"

	if r.Timeline()[0].Content != "hello" {
		t.Fatal("mutating the returned slice changed the internal timeline")
	}
}
