package agentlog

import "time"

// Clock is the single injectable time source used by every stage of the
// pipeline, so tests can advance time deterministically without sleeping.
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }
