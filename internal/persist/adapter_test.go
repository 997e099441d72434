package persist

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viewhub/viewhub/internal/shared/types"
)

func testSession(i int, state types.ConnectionState) types.Session {
	created := time.Date(2024, 3, 1, 10, 0, i, 0, time.UTC)
	return types.Session{
		ID:           fmt.Sprintf("sess_%02d", i),
		ServerURL:    fmt.Sprintf("https://server%d.example.com", i),
		DisplayName:  "example.com",
		State:        state,
		CreatedAt:    created,
		LastActiveAt: created.Add(time.Minute),
		RenderState:  []byte("should never persist"),
	}
}

func TestPersistLoadRoundTrip(t *testing.T) {
	a := NewAdapter(NewMemStore(), nil)

	sessions := []types.Session{
		testSession(1, types.Connected{}),
		testSession(2, types.ConnFailed{Message: "timeout"}),
		testSession(3, types.Disconnected{}),
	}
	activeID := sessions[1].ID
	require.NoError(t, a.Persist(sessions, &activeID))

	records, loadedActive := a.Load()
	require.Len(t, records, 3)
	require.NotNil(t, loadedActive)
	assert.Equal(t, activeID, *loadedActive)

	for i, rec := range records {
		assert.Equal(t, sessions[i].ID, rec.ID)
		assert.Equal(t, sessions[i].ServerURL, rec.ServerURL)
		assert.Equal(t, sessions[i].DisplayName, rec.DisplayName)
		assert.True(t, sessions[i].CreatedAt.Equal(rec.CreatedAt))
		assert.True(t, sessions[i].LastActiveAt.Equal(rec.LastActiveAt))
	}
}

func TestLoadMissingIsEmpty(t *testing.T) {
	a := NewAdapter(NewMemStore(), nil)

	records, activeID := a.Load()
	assert.Nil(t, records)
	assert.Nil(t, activeID)
}

func TestLoadCorruptIsEmpty(t *testing.T) {
	kv := NewMemStore()
	require.NoError(t, kv.Set("viewhub.sessions", "{not json"))

	a := NewAdapter(kv, nil)
	records, activeID := a.Load()
	assert.Nil(t, records)
	assert.Nil(t, activeID)
}

func TestPersistOverwrites(t *testing.T) {
	a := NewAdapter(NewMemStore(), nil)

	require.NoError(t, a.Persist([]types.Session{testSession(1, types.Disconnected{})}, nil))
	require.NoError(t, a.Persist([]types.Session{testSession(2, types.Disconnected{})}, nil))

	records, _ := a.Load()
	require.Len(t, records, 1)
	assert.Equal(t, "sess_02", records[0].ID)
}

func TestRecentBoundAndOrdering(t *testing.T) {
	a := NewAdapter(NewMemStore(), nil)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < types.MaxRecentEntries+1; i++ {
		a.AddRecentURL(fmt.Sprintf("https://server%d.example.com", i), "", base.Add(time.Duration(i)*time.Minute))
	}

	entries := a.RecentURLs()
	require.Len(t, entries, types.MaxRecentEntries)
	assert.Equal(t, "https://server10.example.com", entries[0].URL)
	// The oldest entry fell off the end.
	for _, e := range entries {
		assert.NotEqual(t, "https://server0.example.com", e.URL)
	}
}

func TestRecentDedupMovesToFront(t *testing.T) {
	a := NewAdapter(NewMemStore(), nil)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	a.AddRecentURL("https://a.example.com", "a", base)
	a.AddRecentURL("https://b.example.com", "b", base.Add(time.Minute))
	a.AddRecentURL("https://a.example.com", "", base.Add(2*time.Minute))

	entries := a.RecentURLs()
	require.Len(t, entries, 2)
	assert.Equal(t, "https://a.example.com", entries[0].URL)
	// Name survives a refresh with no name.
	assert.Equal(t, "a", entries[0].Name)
	assert.True(t, entries[0].LastConnected.Equal(base.Add(2*time.Minute)))
}

func TestRecentSurvivesReopen(t *testing.T) {
	kv := NewMemStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	a := NewAdapter(kv, nil)
	a.AddRecentURL("https://a.example.com", "a", base)

	reopened := NewAdapter(kv, nil)
	entries := reopened.RecentURLs()
	require.Len(t, entries, 1)
	assert.Equal(t, "https://a.example.com", entries[0].URL)
}

func TestRemoveRecentURL(t *testing.T) {
	a := NewAdapter(NewMemStore(), nil)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	a.AddRecentURL("https://a.example.com", "", base)
	a.AddRecentURL("https://b.example.com", "", base)

	a.RemoveRecentURL("https://a.example.com")
	entries := a.RecentURLs()
	require.Len(t, entries, 1)
	assert.Equal(t, "https://b.example.com", entries[0].URL)

	// Removing an unknown url is a no-op.
	a.RemoveRecentURL("https://missing.example.com")
	assert.Len(t, a.RecentURLs(), 1)
}

func TestClearHistory(t *testing.T) {
	kv := NewMemStore()
	a := NewAdapter(kv, nil)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	a.AddRecentURL("https://a.example.com", "", base)
	activeID := "sess_01"
	require.NoError(t, a.Persist([]types.Session{testSession(1, types.Connected{})}, &activeID))

	a.ClearHistory()

	assert.Empty(t, a.RecentURLs())
	records, loadedActive := a.Load()
	assert.Nil(t, records)
	assert.Nil(t, loadedActive)

	_, hasSessions := kv.Get("viewhub.sessions")
	_, hasRecent := kv.Get("viewhub.recent")
	assert.False(t, hasSessions)
	assert.False(t, hasRecent)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/store.json"

	fs, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs.Set("k", "v"))

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	v, ok := reopened.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, reopened.Remove("k"))
	again, err := OpenFileStore(path)
	require.NoError(t, err)
	_, ok = again.Get("k")
	assert.False(t, ok)
}

func TestFileStoreCorruptStartsEmpty(t *testing.T) {
	path := t.TempDir() + "/store.json"
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0o644))

	fs, err := OpenFileStore(path)
	require.NoError(t, err)
	_, ok := fs.Get("anything")
	assert.False(t, ok)
}
