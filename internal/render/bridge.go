package render

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/viewhub/viewhub/internal/infrastructure/logging"
)

// SessionWriter is the slice of the session store the bridge writes
// through to.
type SessionWriter interface {
	SetRenderState(sessionID string, blob []byte) bool
}

// Bridge associates each live session with an opaque engine state blob so
// that switching away from and back to a session resumes where the user
// left off.
//
// Blobs are held gzip-compressed in memory; engine state dumps compress
// well. The bridge is a best-effort in-process cache: blobs do not need
// to survive a restart.
type Bridge struct {
	mu    sync.Mutex
	blobs map[string][]byte

	store  SessionWriter
	logger *logging.Logger
}

// NewBridge creates a bridge writing through to store.
func NewBridge(store SessionWriter, logger *logging.Logger) *Bridge {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bridge{
		blobs:  make(map[string][]byte),
		store:  store,
		logger: logger,
	}
}

// SaveState stores blob for sessionID, replacing any prior value
// wholesale, and writes it through onto the session entity.
func (b *Bridge) SaveState(sessionID string, blob []byte) {
	if len(blob) == 0 {
		return
	}

	compressed, err := compress(blob)
	if err != nil {
		b.logger.Warn("failed to compress render state",
			zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	b.mu.Lock()
	b.blobs[sessionID] = compressed
	b.mu.Unlock()

	if b.store != nil {
		b.store.SetRenderState(sessionID, blob)
	}
}

// LoadState returns the most recently saved blob for sessionID, or nil if
// none exists (the caller then falls back to a fresh load).
func (b *Bridge) LoadState(sessionID string) []byte {
	b.mu.Lock()
	compressed, ok := b.blobs[sessionID]
	b.mu.Unlock()
	if !ok {
		return nil
	}

	blob, err := decompress(compressed)
	if err != nil {
		b.logger.Warn("failed to decompress render state",
			zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}
	return blob
}

// Drop discards the blob for a removed session.
func (b *Bridge) Drop(sessionID string) {
	b.mu.Lock()
	delete(b.blobs, sessionID)
	b.mu.Unlock()
}

func compress(blob []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(blob); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(compressed []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
