package chat

import (
	"sort"
	"sync"

	messagestore "github.com/dalemusser/ghostwire/internal/app/store/messages"
)

// Reconciler merges the two history paths a consumer sees for a group: the
// REST snapshot fetched at page load and the history frame pushed over the
// socket on join, plus live new_message frames. Messages are keyed by id, so
// whichever path delivers one first wins and later copies are discarded.
//
// The socket history push is authoritative only while nothing REST-sourced
// has been rendered. Once Seed has run, later pushes are dropped wholesale
// rather than merged; live messages still land through Apply.
type Reconciler struct {
	mu       sync.Mutex
	seeded   bool
	seen     map[string]struct{}
	timeline []messagestore.EnrichedMessage
}

// NewReconciler returns an empty Reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{seen: make(map[string]struct{})}
}

// Seed folds the REST snapshot into the timeline and marks it rendered.
// From this point on, Merge discards socket history pushes.
func (r *Reconciler) Seed(batch []messagestore.EnrichedMessage) []messagestore.EnrichedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeded = true
	return r.merge(batch)
}

// Merge folds a socket history push into the timeline and returns the
// messages that were actually new. A push arriving after the REST snapshot
// has rendered is discarded entirely.
func (r *Reconciler) Merge(batch []messagestore.EnrichedMessage) []messagestore.EnrichedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seeded {
		return nil
	}
	return r.merge(batch)
}

// merge dedupes by id and keeps the timeline chronological. Callers hold mu.
func (r *Reconciler) merge(batch []messagestore.EnrichedMessage) []messagestore.EnrichedMessage {
	var added []messagestore.EnrichedMessage
	for _, m := range batch {
		if _, dup := r.seen[m.ID]; dup {
			continue
		}
		r.seen[m.ID] = struct{}{}
		r.timeline = append(r.timeline, m)
		added = append(added, m)
	}
	if len(added) > 0 {
		sort.SliceStable(r.timeline, func(i, j int) bool {
			a, b := r.timeline[i], r.timeline[j]
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID < b.ID
			}
			return a.CreatedAt.Before(b.CreatedAt)
		})
	}
	return added
}

// Apply records a single live message. It returns true when the message is
// new and should be rendered, false when it is a duplicate of something
// already on the timeline.
func (r *Reconciler) Apply(m messagestore.EnrichedMessage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.merge([]messagestore.EnrichedMessage{m})) == 1
}

// Timeline returns a copy of the merged view in chronological order.
func (r *Reconciler) Timeline() []messagestore.EnrichedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]messagestore.EnrichedMessage, len(r.timeline))
	copy(out, r.timeline)
	return out
}

// Len reports how many distinct messages the timeline holds.
func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timeline)
}
