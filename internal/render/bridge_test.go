package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	saved map[string][]byte
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{saved: make(map[string][]byte)}
}

func (f *fakeWriter) SetRenderState(sessionID string, blob []byte) bool {
	f.saved[sessionID] = blob
	return true
}

func TestBridgeRoundTrip(t *testing.T) {
	b := NewBridge(newFakeWriter(), nil)

	blob := bytes.Repeat([]byte("scroll-position;form-data;"), 100)
	b.SaveState("sess_1", blob)

	got := b.LoadState("sess_1")
	assert.Equal(t, blob, got)
}

func TestBridgeReplacesWholesale(t *testing.T) {
	b := NewBridge(newFakeWriter(), nil)

	b.SaveState("sess_1", []byte("first"))
	b.SaveState("sess_1", []byte("second"))

	assert.Equal(t, []byte("second"), b.LoadState("sess_1"))
}

func TestBridgeMissingIsNil(t *testing.T) {
	b := NewBridge(newFakeWriter(), nil)
	assert.Nil(t, b.LoadState("sess_unknown"))
}

func TestBridgeWritesThrough(t *testing.T) {
	w := newFakeWriter()
	b := NewBridge(w, nil)

	blob := []byte("engine state")
	b.SaveState("sess_1", blob)

	// The uncompressed blob lands on the session entity.
	require.Contains(t, w.saved, "sess_1")
	assert.Equal(t, blob, w.saved["sess_1"])
}

func TestBridgeDrop(t *testing.T) {
	b := NewBridge(newFakeWriter(), nil)

	b.SaveState("sess_1", []byte("state"))
	b.Drop("sess_1")

	assert.Nil(t, b.LoadState("sess_1"))
}

func TestBridgeIgnoresEmptyBlob(t *testing.T) {
	w := newFakeWriter()
	b := NewBridge(w, nil)

	b.SaveState("sess_1", nil)

	assert.Nil(t, b.LoadState("sess_1"))
	assert.Empty(t, w.saved)
}
