package channels

import "time"

// ReceiveAll drains ch until it is closed, idle for longer than idle, or max
// items have been read. A max of 0 means no limit.
func ReceiveAll[T any](ch <-chan T, idle time.Duration, maxItems int) []T {
	var out []T

	timer := time.NewTimer(idle)
	defer timer.Stop()

	for maxItems == 0 || len(out) < maxItems {
		select {
		case v, ok := <-ch:
			if !ok {
				return out
			}

			out = append(out, v)
			timer.Reset(idle)
		case <-timer.C:
			return out
		}
	}

	return out
}
