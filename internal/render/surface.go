package render

import "context"

// Callbacks receive page lifecycle reports from a rendering surface. They
// map one-to-one onto the connection tracker's transition methods.
type Callbacks interface {
	PageStarted(url string)
	PageFinished(url string)
	PageError(message string)
}

// Surface is the rendering collaborator contract: an embeddable engine
// that displays a session's remote content. The core never inspects the
// displayed content; it only passes endpoint URLs and exchanges opaque
// state blobs for suspend/resume.
type Surface interface {
	// Load instructs the surface to begin fetching and displaying url.
	// Outcomes are reported through Callbacks.
	Load(ctx context.Context, url string)

	// CaptureState returns an opaque snapshot of the surface's current
	// state, or nil when there is nothing to capture.
	CaptureState() []byte

	// RestoreState replaces the surface's state with a previously
	// captured blob.
	RestoreState(blob []byte)
}

type nopCallbacks struct{}

func (nopCallbacks) PageStarted(string)  {}
func (nopCallbacks) PageFinished(string) {}
func (nopCallbacks) PageError(string)    {}
