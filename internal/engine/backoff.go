package engine

import "time"

// nextDelay doubles the previous poll delay up to the cap.
func nextDelay(prev, cap time.Duration) time.Duration {
	next := prev * 2
	if next > cap {
		return cap
	}
	return next
}
