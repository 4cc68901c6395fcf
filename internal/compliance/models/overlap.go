package models

import "time"

// Interval overlap rules, used by the activation guards.
//
// Policies always carry an end date, so their check uses the closed rule.
// Permits and registration licenses may be open-ended, so their check treats
// a nil end as extending forever.

// Overlaps reports whether the closed intervals [s1,e1] and [s2,e2] share at
// least one instant: s1 <= e2 AND s2 <= e1.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return !s1.After(e2) && !s2.After(e1)
}

// OverlapsOpenEnded applies the same rule with optional ends: a nil end is
// open-ended, so the interval extends forever from its start.
func OverlapsOpenEnded(s1 time.Time, e1 *time.Time, s2 time.Time, e2 *time.Time) bool {
	if e1 != nil && s2.After(*e1) {
		return false
	}
	if e2 != nil && s1.After(*e2) {
		return false
	}
	return true
}
