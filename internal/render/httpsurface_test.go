package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCallbacks captures lifecycle reports for assertions.
type recordingCallbacks struct {
	started  []string
	finished []string
	errors   []string
}

func (r *recordingCallbacks) PageStarted(url string)   { r.started = append(r.started, url) }
func (r *recordingCallbacks) PageFinished(url string)  { r.finished = append(r.finished, url) }
func (r *recordingCallbacks) PageError(message string) { r.errors = append(r.errors, message) }

func testSurfaceOptions() SurfaceOptions {
	return SurfaceOptions{
		Timeout:    5 * time.Second,
		UserAgent:  "viewhub-test",
		MaxRetries: 0,
	}
}

func TestHTTPSurfaceLoadSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title>ViewHub Home</title></head><body><p>hi</p></body></html>"))
	}))
	defer srv.Close()

	surface := NewHTTPSurface(testSurfaceOptions(), nil)
	cb := &recordingCallbacks{}
	surface.Notify(cb)

	surface.Load(context.Background(), srv.URL)

	require.Equal(t, []string{srv.URL}, cb.started)
	require.Equal(t, []string{srv.URL}, cb.finished)
	assert.Empty(t, cb.errors)

	url, title := surface.Page()
	assert.Equal(t, srv.URL, url)
	assert.Equal(t, "ViewHub Home", title)
}

func TestHTTPSurfaceSanitizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>ok</p><script>alert(1)</script></body></html>"))
	}))
	defer srv.Close()

	surface := NewHTTPSurface(testSurfaceOptions(), nil)
	surface.Notify(&recordingCallbacks{})
	surface.Load(context.Background(), srv.URL)

	blob := surface.CaptureState()
	require.NotNil(t, blob)
	assert.Contains(t, string(blob), "<p>ok</p>")
	assert.NotContains(t, string(blob), "<script>")
}

func TestHTTPSurfaceStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	surface := NewHTTPSurface(testSurfaceOptions(), nil)
	cb := &recordingCallbacks{}
	surface.Notify(cb)

	surface.Load(context.Background(), srv.URL)

	assert.Empty(t, cb.finished)
	require.Len(t, cb.errors, 1)
	assert.Contains(t, cb.errors[0], "404")
}

func TestHTTPSurfaceTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // guarantees a refused connection

	surface := NewHTTPSurface(testSurfaceOptions(), nil)
	cb := &recordingCallbacks{}
	surface.Notify(cb)

	surface.Load(context.Background(), srv.URL)

	assert.Empty(t, cb.finished)
	require.Len(t, cb.errors, 1)
}

func TestHTTPSurfaceCaptureRestore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><head><title>Page " + r.URL.Path + "</title></head></html>"))
	}))
	defer srv.Close()

	surface := NewHTTPSurface(testSurfaceOptions(), nil)
	surface.Notify(&recordingCallbacks{})

	surface.Load(context.Background(), srv.URL+"/one")
	saved := surface.CaptureState()
	require.NotNil(t, saved)

	surface.Load(context.Background(), srv.URL+"/two")
	url, _ := surface.Page()
	require.Equal(t, srv.URL+"/two", url)

	surface.RestoreState(saved)
	url, title := surface.Page()
	assert.Equal(t, srv.URL+"/one", url)
	assert.Equal(t, "Page /one", title)
}

func TestHTTPSurfaceBreakerTripsOnRepeatedFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	surface := NewHTTPSurface(testSurfaceOptions(), nil)
	cb := &recordingCallbacks{}
	surface.Notify(cb)

	for i := 0; i < 5; i++ {
		surface.Load(context.Background(), srv.URL)
	}

	require.Len(t, cb.errors, 5)
	assert.Equal(t, 3, hits, "breaker stops hitting the server after the threshold")
	assert.Contains(t, cb.errors[4], "temporarily unavailable")
}

func TestHTTPSurfaceCaptureEmpty(t *testing.T) {
	surface := NewHTTPSurface(testSurfaceOptions(), nil)
	assert.Nil(t, surface.CaptureState(), "nothing loaded means nothing to capture")
}

func TestHTTPSurfaceRestoreGarbage(t *testing.T) {
	surface := NewHTTPSurface(testSurfaceOptions(), nil)
	surface.RestoreState([]byte("{not json"))

	url, title := surface.Page()
	assert.Empty(t, url)
	assert.Empty(t, title)
}
