package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionID(t *testing.T) {
	sid := NewSessionID()
	require.True(t, strings.HasPrefix(sid.String(), "sess_"))
	assert.Len(t, sid.String(), len("sess_")+26) // ULIDs are 26 chars
}

func TestUniqueness(t *testing.T) {
	seen := make(map[SessionID]bool)
	for i := 0; i < 1000; i++ {
		sid := NewSessionID()
		require.False(t, seen[sid], "duplicate id %s", sid)
		seen[sid] = true
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	g := NewGenerator(strings.NewReader(strings.Repeat("x", 1024)))
	first := g.GenerateWithPrefix("req")
	second := g.GenerateWithPrefix("req")

	assert.True(t, strings.HasPrefix(first, "req_"))
	assert.NotEqual(t, first, second)
}
