package bridge

import (
	"CircleGate/logger"

	"golang.org/x/net/context"
)

// Recovery keeps a panicking handler from killing the subscription
// goroutine; the message is dropped, the subscription lives on.
func Recovery() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("[bridge] handler panic subject=%s: %v", msg.Subject, r)
				}
			}()
			return next(ctx, msg)
		}
	}
}

// DebugLog traces every delivered message at debug level.
func DebugLog() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) error {
			logger.Debug("[bridge] recv " + msg.Subject)
			return next(ctx, msg)
		}
	}
}
