package presence

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type event struct {
	name    string
	payload any
}

type fakeConn struct {
	id  string
	err error

	mu     sync.Mutex
	events []event
}

func newConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Emit(name string, args ...any) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var payload any
	if len(args) > 0 {
		payload = args[0]
	}
	c.events = append(c.events, event{name: name, payload: payload})
	return nil
}

func (c *fakeConn) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.name)
	}
	return out
}

type fakeBus struct {
	mu     sync.Mutex
	events []event
}

func (b *fakeBus) Broadcast(name string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var payload any
	if len(args) > 0 {
		payload = args[0]
	}
	b.events = append(b.events, event{name: name, payload: payload})
}

func (b *fakeBus) reset() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

func (b *fakeBus) count(name string, payload any) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.name == name && (payload == nil || assert.ObjectsAreEqual(payload, e.payload)) {
			n++
		}
	}
	return n
}

func (b *fakeBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.name)
	}
	return out
}

type fakeDirectory struct {
	exists   map[string]bool
	profiles map[string]Profile
	failing  map[string]bool
}

func (d *fakeDirectory) Exists(_ context.Context, id string) (bool, error) {
	if d.failing[id] {
		return false, errors.New("store unavailable")
	}
	return d.exists[id], nil
}

func (d *fakeDirectory) Profile(_ context.Context, id string) (Profile, error) {
	p, ok := d.profiles[id]
	if !ok {
		return Profile{}, errors.New("not found")
	}
	return p, nil
}

func newRegistry(dir Directory) (*Registry, *fakeBus) {
	bus := &fakeBus{}
	return NewRegistry(bus, dir, nil), bus
}

func TestAnnounce(t *testing.T) {
	reg, bus := newRegistry(nil)
	c := newConn("s1")

	reg.Announce(c, "u1")

	assert.True(t, reg.IsOnline("u1"))
	activity, ok := reg.Activity("u1")
	require.True(t, ok)
	assert.Equal(t, DefaultActivity, activity)

	require.Len(t, c.events, 1)
	assert.Equal(t, EventUsersOnline, c.events[0].name)
	assert.Equal(t, []string{"u1"}, c.events[0].payload)

	assert.Equal(t, []string{EventUserConnected, EventUsersOnline, EventActivities}, bus.names())
	assert.Equal(t, 1, bus.count(EventUserConnected, "u1"))
	assert.Equal(t, 1, bus.count(EventActivities, [][2]string{{"u1", DefaultActivity}}))
}

func TestAnnounceIgnoresEmptyPrincipal(t *testing.T) {
	reg, bus := newRegistry(nil)
	c := newConn("s1")

	reg.Announce(c, "")

	assert.Zero(t, reg.Count())
	assert.Empty(t, c.events)
	assert.Empty(t, bus.names())
}

func TestAnnouncePreservesActivity(t *testing.T) {
	reg, _ := newRegistry(nil)
	reg.UpdateActivity("u1", "Playing Song by Artist")

	reg.Announce(newConn("s1"), "u1")

	activity, _ := reg.Activity("u1")
	assert.Equal(t, "Playing Song by Artist", activity)
}

func TestStaleHandleDisconnectIsNoop(t *testing.T) {
	reg, bus := newRegistry(nil)
	hA, hB := newConn("hA"), newConn("hB")

	reg.Announce(hA, "u1")
	reg.Announce(hB, "u1")
	bus.reset()

	reg.Disconnect(hA)

	assert.True(t, reg.IsOnline("u1"))
	assert.Empty(t, bus.names())

	reg.DeliverToPrincipal("u1", "ping", nil)
	assert.Contains(t, hB.names(), "ping")
	assert.NotContains(t, hA.names(), "ping")
}

func TestDisconnectBroadcastsOnce(t *testing.T) {
	reg, bus := newRegistry(nil)
	c := newConn("s3")
	reg.Announce(c, "u3")
	bus.reset()

	reg.Disconnect(c)
	reg.Disconnect(c)

	assert.False(t, reg.IsOnline("u3"))
	_, ok := reg.Activity("u3")
	assert.False(t, ok)
	assert.Equal(t, 1, bus.count(EventUserDisconnected, "u3"))
	assert.Equal(t, []string{EventUserDisconnected, EventUsersOnline, EventActivities}, bus.names())
}

func TestDisconnectUnknownHandle(t *testing.T) {
	reg, bus := newRegistry(nil)
	reg.Announce(newConn("s1"), "u1")
	bus.reset()

	reg.Disconnect(newConn("never-announced"))

	assert.Equal(t, 1, reg.Count())
	assert.Empty(t, bus.names())
}

func TestReannounceUnderNewIdentityReleasesSlot(t *testing.T) {
	reg, bus := newRegistry(nil)
	c := newConn("s1")
	reg.Announce(c, "u1")

	reg.Announce(c, "u2")

	assert.False(t, reg.IsOnline("u1"))
	assert.True(t, reg.IsOnline("u2"))
	assert.Equal(t, 1, bus.count(EventUserDisconnected, "u1"))

	reg.Disconnect(c)
	assert.Zero(t, reg.Count())
}

func TestUpdateActivityIsIdempotent(t *testing.T) {
	reg, bus := newRegistry(nil)
	reg.Announce(newConn("s1"), "u1")
	bus.reset()

	reg.UpdateActivity("u1", "Playing X")
	first := reg.Activities()
	reg.UpdateActivity("u1", "Playing X")

	assert.Equal(t, first, reg.Activities())
	assert.Equal(t, 2, bus.count(EventActivityUpdated, ActivityUpdate{UserID: "u1", Activity: "Playing X"}))
	assert.Equal(t, 2, bus.count(EventActivities, nil))
}

func TestUpdateActivityForUnannouncedPrincipal(t *testing.T) {
	reg, _ := newRegistry(nil)

	reg.UpdateActivity("ghost", "Idle")

	assert.False(t, reg.IsOnline("ghost"))
	assert.Equal(t, [][2]string{{"ghost", "Idle"}}, reg.Activities())
}

func TestTyping(t *testing.T) {
	dir := &fakeDirectory{profiles: map[string]Profile{"u1": {Name: "Ana", Avatar: "a.png"}}}
	reg, bus := newRegistry(dir)
	sender, receiver := newConn("s1"), newConn("s2")
	reg.Announce(sender, "u1")
	reg.Announce(receiver, "u2")
	bus.reset()
	senderBefore := len(sender.names())

	assert.True(t, reg.Typing(context.Background(), "u1", "u2", true))
	assert.True(t, reg.Typing(context.Background(), "u1", "u2", false))

	require.Len(t, receiver.events, 3)
	assert.Equal(t, event{EventUserTyping, TypingPayload{UserID: "u1", UserName: "Ana", UserAvatar: "a.png"}}, receiver.events[1])
	assert.Equal(t, event{EventUserStoppedTyping, StoppedTypingPayload{UserID: "u1"}}, receiver.events[2])
	assert.Len(t, sender.names(), senderBefore)
	assert.Empty(t, bus.names())
}

func TestTypingProfileLookupFailureSendsEmptyProfile(t *testing.T) {
	reg, _ := newRegistry(&fakeDirectory{})
	receiver := newConn("s2")
	reg.Announce(receiver, "u2")

	assert.True(t, reg.Typing(context.Background(), "u1", "u2", true))
	last := receiver.events[len(receiver.events)-1]
	assert.Equal(t, TypingPayload{UserID: "u1"}, last.payload)
}

func TestTypingToOfflineReceiverIsNoop(t *testing.T) {
	reg, bus := newRegistry(&fakeDirectory{})
	sender := newConn("s1")
	reg.Announce(sender, "u1")
	bus.reset()
	before := len(sender.names())

	assert.False(t, reg.Typing(context.Background(), "u1", "u9", true))
	assert.False(t, reg.Typing(context.Background(), "u1", "u9", false))

	assert.Empty(t, bus.names())
	assert.Len(t, sender.names(), before)
}

func TestRemove(t *testing.T) {
	reg, bus := newRegistry(nil)
	c := newConn("s1")
	reg.Announce(c, "u1")
	bus.reset()

	assert.True(t, reg.Remove("u1"))
	assert.False(t, reg.Remove("u1"))
	assert.Equal(t, 1, bus.count(EventUserDisconnected, "u1"))

	// the removed principal's socket closing later changes nothing
	bus.reset()
	reg.Disconnect(c)
	assert.Empty(t, bus.names())
}

func TestRemoveActivityOnlyPrincipal(t *testing.T) {
	reg, bus := newRegistry(nil)
	reg.UpdateActivity("ghost", "Listening")
	bus.reset()

	assert.True(t, reg.Remove("ghost"))
	_, ok := reg.Activity("ghost")
	assert.False(t, ok)
	assert.Zero(t, bus.count(EventUserDisconnected, nil))
	assert.Equal(t, []string{EventActivities}, bus.names())
	assert.Equal(t, 1, bus.count(EventActivities, [][2]string{}))
}

func TestDeliverToPrincipal(t *testing.T) {
	reg, _ := newRegistry(nil)
	c := newConn("s1")
	reg.Announce(c, "u1")

	assert.True(t, reg.DeliverToPrincipal("u1", "new_notification", map[string]any{"id": "n1"}))
	assert.Equal(t, "new_notification", c.events[len(c.events)-1].name)

	assert.False(t, reg.DeliverToPrincipal("u2", "new_notification", nil))

	broken := newConn("s2")
	reg.Announce(broken, "u2")
	broken.err = errors.New("write: broken pipe")
	assert.False(t, reg.DeliverToPrincipal("u2", "new_notification", nil))
}

func TestSweep(t *testing.T) {
	dir := &fakeDirectory{exists: map[string]bool{"u1": true}}
	reg, bus := newRegistry(dir)
	reg.Announce(newConn("s1"), "u1")
	reg.Announce(newConn("s2"), "u2")
	bus.reset()

	removed := reg.Sweep(context.Background())

	assert.Equal(t, []string{"u2"}, removed)
	assert.Equal(t, []string{"u1"}, reg.OnlineSet())
	assert.Equal(t, [][2]string{{"u1", DefaultActivity}}, reg.Activities())
	assert.Equal(t, 1, bus.count(EventUserDisconnected, "u2"))
}

func TestSweepLogsRemovalsOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	dir := &fakeDirectory{exists: map[string]bool{}}
	reg := NewRegistry(&fakeBus{}, dir, zap.New(core))
	reg.Announce(newConn("s1"), "u1")
	reg.Announce(newConn("s2"), "u2")

	assert.Len(t, reg.Sweep(context.Background()), 2)

	entries := logs.FilterMessage("presence sweep removed orphans").All()
	require.Len(t, entries, 1)
	assert.ElementsMatch(t, []interface{}{"u1", "u2"}, entries[0].ContextMap()["principals"])

	assert.Empty(t, reg.Sweep(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("presence sweep removed orphans").Len())
}

func TestSweepKeepsEntriesOnLookupError(t *testing.T) {
	dir := &fakeDirectory{failing: map[string]bool{"u1": true}}
	reg, _ := newRegistry(dir)
	reg.Announce(newConn("s1"), "u1")

	assert.Empty(t, reg.Sweep(context.Background()))
	assert.True(t, reg.IsOnline("u1"))
}

func TestConcurrentAnnounceAndDisconnect(t *testing.T) {
	reg, _ := newRegistry(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newConn(string(rune('a'+i%26)) + "-" + string(rune('0'+i%10)))
			reg.Announce(c, "shared")
			reg.UpdateActivity("shared", "busy")
			reg.Disconnect(c)
		}(i)
	}
	wg.Wait()

	// whichever handle won last-connect either disconnected or is still the owner
	assert.LessOrEqual(t, reg.Count(), 1)
	if reg.IsOnline("shared") {
		_, ok := reg.Activity("shared")
		assert.True(t, ok)
	}
}
