package billing

import "time"

// Clock supplies session boundary timestamps.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ElapsedSeconds is end - start in whole seconds, floored. An end before
// start (clock skew between hosts) counts as zero.
func ElapsedSeconds(start, end time.Time) int64 {
	if !end.After(start) {
		return 0
	}
	return int64(end.Sub(start) / time.Second)
}
