package model

import "time"

// FarmSelectionMaxAge is the staleness window for a persisted current-farm
// pointer. Pointers older than this are never reinstated on load.
const FarmSelectionMaxAge = 7 * 24 * time.Hour

// FarmSelection is the persisted pointer to the user's active farm. It is a
// weak reference: the referenced farm may no longer exist in a freshly loaded
// list, in which case the selection is dropped.
type FarmSelection struct {
	FarmID    string    `json:"id"`
	FarmName  string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// Fresh reports whether the selection is within the staleness window
// relative to now.
func (s FarmSelection) Fresh(now time.Time) bool {
	if s.FarmID == "" || s.Timestamp.IsZero() {
		return false
	}
	return now.Sub(s.Timestamp) <= FarmSelectionMaxAge
}
