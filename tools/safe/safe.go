package safe

import "CircleGate/logger"

// Go starts a goroutine that recovers from panics, so one broken
// connection cannot crash the whole gateway process.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe] panic recovered: %v", r)
			}
		}()
		f()
	}()
}
