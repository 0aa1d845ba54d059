package dedupe

import "time"

// SetClock replaces the time source of s.
func (s *Seen) SetClock(now func() time.Time) { s.now = now }
