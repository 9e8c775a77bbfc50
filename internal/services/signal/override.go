package signal

import (
	"container/heap"
	"time"

	"signal-controller-go/internal/models"
)

type overrideEntry struct {
	override models.EmergencyOverride
	index    int
}

type overrideHeap []*overrideEntry

func (h overrideHeap) Len() int { return len(h) }
func (h overrideHeap) Less(i, j int) bool {
	return h[i].override.ExpiresAt.Before(h[j].override.ExpiresAt)
}
func (h overrideHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *overrideHeap) Push(x any) {
	e := x.(*overrideEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *overrideHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// OverrideQueue holds at most one pending auto-clear deadline per lane,
// ordered by expiry. It is not safe for concurrent use; the owning session
// serializes access under its own lock.
type OverrideQueue struct {
	entries overrideHeap
	byLane  map[models.LaneID]*overrideEntry
}

// NewOverrideQueue creates an empty queue
func NewOverrideQueue() *OverrideQueue {
	return &OverrideQueue{byLane: make(map[models.LaneID]*overrideEntry)}
}

// Schedule activates or refreshes the override of a lane. A pending deadline
// for the same lane is replaced, never duplicated. refreshed reports whether
// an override was already active.
func (q *OverrideQueue) Schedule(laneID models.LaneID, now time.Time, hold time.Duration) (ov models.EmergencyOverride, refreshed bool) {
	ov = models.EmergencyOverride{LaneID: laneID, ActivatedAt: now, ExpiresAt: now.Add(hold)}
	if e, ok := q.byLane[laneID]; ok {
		e.override = ov
		heap.Fix(&q.entries, e.index)
		return ov, true
	}
	e := &overrideEntry{override: ov}
	heap.Push(&q.entries, e)
	q.byLane[laneID] = e
	return ov, false
}

// Cancel drops the pending deadline of a lane
func (q *OverrideQueue) Cancel(laneID models.LaneID) bool {
	e, ok := q.byLane[laneID]
	if !ok {
		return false
	}
	heap.Remove(&q.entries, e.index)
	delete(q.byLane, laneID)
	return true
}

// PopExpired removes and returns every override whose deadline is at or before now
func (q *OverrideQueue) PopExpired(now time.Time) []models.EmergencyOverride {
	var expired []models.EmergencyOverride
	for q.entries.Len() > 0 && !q.entries[0].override.ExpiresAt.After(now) {
		e := heap.Pop(&q.entries).(*overrideEntry)
		delete(q.byLane, e.override.LaneID)
		expired = append(expired, e.override)
	}
	return expired
}

// Active returns the pending override of a lane
func (q *OverrideQueue) Active(laneID models.LaneID) (models.EmergencyOverride, bool) {
	e, ok := q.byLane[laneID]
	if !ok {
		return models.EmergencyOverride{}, false
	}
	return e.override, true
}

// Clear cancels every pending deadline and returns how many were dropped
func (q *OverrideQueue) Clear() int {
	n := len(q.byLane)
	q.entries = nil
	q.byLane = make(map[models.LaneID]*overrideEntry)
	return n
}

// Len returns the number of pending overrides
func (q *OverrideQueue) Len() int {
	return q.entries.Len()
}
