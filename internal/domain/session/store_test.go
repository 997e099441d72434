package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viewhub/viewhub/internal/shared/types"
	"github.com/viewhub/viewhub/internal/shared/urls"
)

// testClock hands out strictly increasing timestamps.
type testClock struct {
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) now() time.Time {
	c.current = c.current.Add(time.Second)
	return c.current
}

func newTestStore() (*Store, *testClock) {
	clock := newTestClock()
	return NewStore(nil).WithClock(clock.now), clock
}

func collectEvents(s *Store) *[]types.Event {
	events := &[]types.Event{}
	s.Subscribe(func(ev types.Event) {
		*events = append(*events, ev)
	})
	return events
}

func TestCreateIdempotent(t *testing.T) {
	s, _ := newTestStore()

	first, err := s.Create("a.com")
	require.NoError(t, err)

	second, err := s.Create("  a.com ")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, s.Sessions(), 1)
}

func TestCreateActivatesAndNames(t *testing.T) {
	s, _ := newTestStore()

	sess, err := s.Create("chat.example.com")
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com", sess.ServerURL)
	assert.Equal(t, "example.com", sess.DisplayName)
	assert.Equal(t, types.KindDisconnected, sess.State.Kind())

	active := s.Active()
	require.NotNil(t, active)
	assert.Equal(t, sess.ID, active.ID)
}

func TestCreateValidationError(t *testing.T) {
	s, _ := newTestStore()

	_, err := s.Create("   ")
	assert.ErrorIs(t, err, urls.ErrEmptyInput)
	assert.Empty(t, s.Sessions())
}

func TestCapacityInvariant(t *testing.T) {
	s, _ := newTestStore()

	for i := 0; i < types.MaxSessions+3; i++ {
		_, err := s.Create(fmt.Sprintf("server%d.example.com", i))
		require.NoError(t, err)
		assert.LessOrEqual(t, len(s.Sessions()), types.MaxSessions)
	}
}

func TestEvictionSparesEngaged(t *testing.T) {
	s, _ := newTestStore()

	ids := make([]string, 0, types.MaxSessions)
	for i := 0; i < types.MaxSessions; i++ {
		sess, err := s.Create(fmt.Sprintf("server%d.example.com", i))
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}

	// The oldest session is idle; the second-oldest is connected and must
	// be spared even though both are old.
	require.True(t, s.UpdateState(ids[1], types.Connected{}))

	events := collectEvents(s)
	_, err := s.Create("one-too-many.example.com")
	require.NoError(t, err)

	require.NotEmpty(t, *events)
	removed, ok := (*events)[0].(types.SessionRemoved)
	require.True(t, ok, "first event should be the eviction")
	assert.True(t, removed.Evicted)
	assert.Equal(t, ids[0], removed.Session.ID)

	_, stillLive := s.Get(ids[1])
	assert.True(t, stillLive)
}

func TestEvictionAllEngaged(t *testing.T) {
	s, _ := newTestStore()

	ids := make([]string, 0, types.MaxSessions)
	for i := 0; i < types.MaxSessions; i++ {
		sess, err := s.Create(fmt.Sprintf("server%d.example.com", i))
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}
	for _, sid := range ids {
		require.True(t, s.UpdateState(sid, types.Connected{}))
	}

	_, err := s.Create("overflow.example.com")
	require.NoError(t, err)

	// UpdateState touched the sessions in order, so ids[0] was the
	// least-recently-active and is evicted despite being connected.
	_, alive := s.Get(ids[0])
	assert.False(t, alive)
	assert.Len(t, s.Sessions(), types.MaxSessions)
}

func TestActivePointerAlwaysValid(t *testing.T) {
	s, _ := newTestStore()

	check := func() {
		active := s.ActiveID()
		if active == nil {
			return
		}
		_, ok := s.Get(*active)
		assert.True(t, ok, "active pointer must reference a live session")
	}

	var ids []string
	for i := 0; i < 7; i++ {
		sess, err := s.Create(fmt.Sprintf("server%d.example.com", i))
		require.NoError(t, err)
		ids = append(ids, sess.ID)
		check()
	}
	for _, sid := range ids {
		s.Remove(sid)
		check()
	}
	assert.Nil(t, s.ActiveID())
}

func TestRemoveActivePromotesMostRecent(t *testing.T) {
	s, _ := newTestStore()

	s1, _ := s.Create("one.example.com")
	s2, _ := s.Create("two.example.com")
	s3, _ := s.Create("three.example.com")

	// Switch back so s1 is active and s3 is the most recently active of
	// the rest.
	require.True(t, s.SetActive(s3.ID))
	require.True(t, s.SetActive(s1.ID))

	require.True(t, s.Remove(s1.ID))

	active := s.Active()
	require.NotNil(t, active)
	assert.Equal(t, s3.ID, active.ID)
	_, ok := s.Get(s2.ID)
	assert.True(t, ok)
}

func TestSetActiveNoopCases(t *testing.T) {
	s, _ := newTestStore()
	sess, _ := s.Create("a.example.com")

	events := collectEvents(s)

	assert.True(t, s.SetActive(sess.ID), "already-active id is still found")
	assert.False(t, s.SetActive("sess_missing"))
	assert.Empty(t, *events, "no-ops emit nothing")
}

func TestUpdateStateEmitsEveryCall(t *testing.T) {
	s, _ := newTestStore()
	sess, _ := s.Create("a.example.com")

	events := collectEvents(s)
	require.True(t, s.UpdateState(sess.ID, types.Connecting{}))
	require.True(t, s.UpdateState(sess.ID, types.Connecting{}))

	var stateChanges []types.SessionStateChanged
	for _, ev := range *events {
		if sc, ok := ev.(types.SessionStateChanged); ok {
			stateChanges = append(stateChanges, sc)
		}
	}
	require.Len(t, stateChanges, 2, "identity transitions still notify")
	assert.Equal(t, types.KindConnecting, stateChanges[1].Old.Kind())
	assert.Equal(t, types.KindConnecting, stateChanges[1].New.Kind())
}

func TestUpdateStateRefreshesActiveReference(t *testing.T) {
	s, _ := newTestStore()
	sess, _ := s.Create("a.example.com")

	events := collectEvents(s)
	require.True(t, s.UpdateState(sess.ID, types.Connected{}))

	require.Len(t, *events, 2)
	refreshed, ok := (*events)[1].(types.ActiveSessionChanged)
	require.True(t, ok)
	require.NotNil(t, refreshed.Session)
	assert.Equal(t, types.KindConnected, refreshed.Session.State.Kind())
}

func TestCreateEventOrder(t *testing.T) {
	s, _ := newTestStore()
	events := collectEvents(s)

	_, err := s.Create("a.example.com")
	require.NoError(t, err)

	require.Len(t, *events, 2)
	_, isCreated := (*events)[0].(types.SessionCreated)
	_, isActive := (*events)[1].(types.ActiveSessionChanged)
	assert.True(t, isCreated)
	assert.True(t, isActive)
}

func TestCanCreateNew(t *testing.T) {
	s, _ := newTestStore()
	assert.True(t, s.CanCreateNew())

	var ids []string
	for i := 0; i < types.MaxSessions; i++ {
		sess, _ := s.Create(fmt.Sprintf("server%d.example.com", i))
		ids = append(ids, sess.ID)
	}
	// At capacity but every session is evictable without disruption.
	assert.True(t, s.CanCreateNew())

	for _, sid := range ids {
		s.UpdateState(sid, types.Connected{})
	}
	assert.False(t, s.CanCreateNew())

	s.UpdateState(ids[2], types.Disconnected{})
	assert.True(t, s.CanCreateNew())
}

func TestEngagedCount(t *testing.T) {
	s, _ := newTestStore()

	a, _ := s.Create("a.example.com")
	b, _ := s.Create("b.example.com")
	s.Create("c.example.com")

	s.UpdateState(a.ID, types.Connecting{})
	s.UpdateState(b.ID, types.Connected{})

	assert.Equal(t, 2, s.EngagedCount())
}

func TestRenderStateRoundTrip(t *testing.T) {
	s, _ := newTestStore()
	sess, _ := s.Create("a.example.com")

	blob := []byte("opaque engine state")
	require.True(t, s.SetRenderState(sess.ID, blob))

	got := s.RenderState(sess.ID)
	assert.Equal(t, blob, got)

	// Wholesale replacement, never merged.
	require.True(t, s.SetRenderState(sess.ID, []byte("v2")))
	assert.Equal(t, []byte("v2"), s.RenderState(sess.ID))

	assert.False(t, s.SetRenderState("sess_missing", blob))
	assert.Nil(t, s.RenderState("sess_missing"))
}

func TestRestore(t *testing.T) {
	s, _ := newTestStore()

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	records := []types.SessionRecord{
		{ID: "sess_a", ServerURL: "https://a.example.com", DisplayName: "example.com", CreatedAt: created, LastActiveAt: created},
		{ID: "sess_b", ServerURL: "http://localhost:3000", DisplayName: "localhost:3000", CreatedAt: created.Add(time.Minute), LastActiveAt: created.Add(time.Hour)},
	}
	activeID := "sess_b"
	s.Restore(records, &activeID)

	sessions := s.Sessions()
	require.Len(t, sessions, 2)
	for _, sess := range sessions {
		assert.Equal(t, types.KindDisconnected, sess.State.Kind())
	}

	active := s.Active()
	require.NotNil(t, active)
	assert.Equal(t, "sess_b", active.ID)
}

func TestRestoreDropsDanglingActive(t *testing.T) {
	s, _ := newTestStore()

	dangling := "sess_gone"
	s.Restore([]types.SessionRecord{{ID: "sess_a", ServerURL: "https://a.example.com"}}, &dangling)

	assert.Nil(t, s.ActiveID())
}

func TestEndToEndScenario(t *testing.T) {
	s, _ := newTestStore()

	s1, err := s.Create("a.com")
	require.NoError(t, err)
	require.Equal(t, s1.ID, s.Active().ID)

	s2, err := s.Create("b.com")
	require.NoError(t, err)
	require.Equal(t, s2.ID, s.Active().ID)
	_, s1Live := s.Get(s1.ID)
	require.True(t, s1Live)

	require.True(t, s.SetActive(s1.ID))
	require.Equal(t, s1.ID, s.Active().ID)

	require.True(t, s.UpdateState(s2.ID, types.ConnFailed{Message: "timeout"}))

	events := collectEvents(s)
	require.True(t, s.Remove(s1.ID))

	active := s.Active()
	require.NotNil(t, active)
	assert.Equal(t, s2.ID, active.ID)

	require.Len(t, *events, 2)
	removed, ok := (*events)[0].(types.SessionRemoved)
	require.True(t, ok)
	assert.Equal(t, s1.ID, removed.Session.ID)
	assert.False(t, removed.Evicted)

	changed, ok := (*events)[1].(types.ActiveSessionChanged)
	require.True(t, ok)
	require.NotNil(t, changed.Session)
	assert.Equal(t, s2.ID, changed.Session.ID)
	assert.Equal(t, types.KindError, changed.Session.State.Kind())
}

func TestRemoveAll(t *testing.T) {
	s, _ := newTestStore()
	s.Create("a.example.com")
	s.Create("b.example.com")

	events := collectEvents(s)
	s.RemoveAll()

	assert.Empty(t, s.Sessions())
	assert.Nil(t, s.ActiveID())

	require.Len(t, *events, 3)
	_, last := (*events)[2].(types.ActiveSessionChanged)
	assert.True(t, last)
}

func TestStats(t *testing.T) {
	s, _ := newTestStore()
	a, _ := s.Create("a.example.com")
	s.Create("b.example.com")
	s.UpdateState(a.ID, types.Connected{})

	stats := s.Stats()
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 1, stats.EngagedSessions)
	require.NotNil(t, stats.ActiveID)
}
