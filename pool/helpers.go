package pool

import "time"

// waitUntil blocks until done is closed or the timeout elapses, reporting
// whether done won. Used to bound the unit join during forced teardown.
func waitUntil(done <-chan struct{}, timeout time.Duration) bool {
	if timeout <= 0 {
		<-done
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
