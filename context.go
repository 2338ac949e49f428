package screenrec

import (
	"context"
	"time"
)

// Context creates a clone with a context that inherits the previous one.
// The clone shares the state of the studio, only the context of its intents differs.
func (s *Studio) Context(ctx context.Context) *Studio {
	if ctx == s.ctx {
		return s
	}

	ctx, cancel := context.WithCancel(ctx)
	newObj := *s
	newObj.ctx = ctx
	newObj.ctxCancel = cancel
	return &newObj
}

// GetContext returns the current context
func (s *Studio) GetContext() context.Context {
	return s.ctx
}

// Cancel current context
func (s *Studio) Cancel() *Studio {
	s.ctxCancel()
	return s
}

// Timeout for chained sub-operations
func (s *Studio) Timeout(d time.Duration) *Studio {
	ctx, cancel := context.WithTimeout(s.ctx, d)
	newObj := s.Context(ctx)
	newObj.timeoutCancel = cancel
	return newObj
}

// CancelTimeout context
func (s *Studio) CancelTimeout() *Studio {
	if s.timeoutCancel != nil {
		s.timeoutCancel()
	}
	return s
}
