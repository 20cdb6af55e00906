package interfaces

import "time"

// -----------------------------------------------------------------------------
// IFrameClock abstracts a display-frame boundary.
// -----------------------------------------------------------------------------

type IFrameClock interface {

	// RequestFrame schedules cb on the next frame boundary with the frame timestamp.
	// The returned func cancels the request if it has not fired yet.
	RequestFrame(cb func(ts time.Time)) (cancel func())
}
