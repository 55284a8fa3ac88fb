package audit

import (
	"context"
	"sync"
)

// Capture accumulates the actor and target a handler learns while
// serving one privileged request. The boundary middleware installs it
// before the handler runs and records exactly one entry afterwards,
// whichever path emitted the response.
type Capture struct {
	mu         sync.Mutex
	actor      string
	targetType string
	targetID   string
	recorded   bool
}

// SetActor records the authenticated user id once it is known.
func (c *Capture) SetActor(userID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.actor = userID
	c.mu.Unlock()
}

// SetTarget names the primary entity the request acted on.
func (c *Capture) SetTarget(targetType, targetID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.targetType = targetType
	c.targetID = targetID
	c.mu.Unlock()
}

// Snapshot returns the captured fields.
func (c *Capture) Snapshot() (actor, targetType, targetID string) {
	if c == nil {
		return "", "", ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.actor, c.targetType, c.targetID
}

// MarkRecorded flips the dedup flag; it returns false if an entry was
// already written for this request.
func (c *Capture) MarkRecorded() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recorded {
		return false
	}
	c.recorded = true
	return true
}

type captureKey struct{}

// WithCapture attaches a fresh capture to the request context.
func WithCapture(ctx context.Context, c *Capture) context.Context {
	return context.WithValue(ctx, captureKey{}, c)
}

// CaptureFromContext returns the capture installed by the boundary, or
// nil outside an audited request. All Capture methods tolerate nil.
func CaptureFromContext(ctx context.Context) *Capture {
	c, _ := ctx.Value(captureKey{}).(*Capture)
	return c
}
