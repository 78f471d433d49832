package room_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/lobby-chat/internal/domain"
	"github.com/cwrk-planet/lobby-chat/internal/room"
	"github.com/cwrk-planet/lobby-chat/internal/wire"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closes []int
}

func (c *fakeConn) Deliver(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("send buffer full")
	}
	c.frames = append(c.frames, append([]byte(nil), frame...))
	return nil
}

func (c *fakeConn) Close(code int, _ string) error {
	c.mu.Lock()
	c.closes = append(c.closes, code)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) decoded(t *testing.T) []wire.Frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]wire.Frame, 0, len(c.frames))
	for _, f := range c.frames {
		fr, err := wire.Decode(f)
		require.NoError(t, err)
		out = append(out, fr)
	}
	return out
}

func (c *fakeConn) closeCodes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.closes...)
}

var fixed = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newRegistry(opts ...room.Option) *room.Registry {
	base := []room.Option{
		room.WithClock(func() time.Time { return fixed }),
		room.WithSequenceStart(100),
	}
	return room.NewRegistry(append(base, opts...)...)
}

func TestJoinLeave_MembershipAndTeardown(t *testing.T) {
	reg := newRegistry()
	c1, c2 := &fakeConn{}, &fakeConn{}

	_, err := reg.Join(7, 1, "u1", c1)
	require.NoError(t, err)
	_, err = reg.Join(7, 2, "u2", c2)
	require.NoError(t, err)
	require.Len(t, reg.Participants(7), 2)
	require.Equal(t, []int64{7}, reg.Rooms())

	reg.Leave(7, 1)
	reg.Leave(7, 1)
	require.Len(t, reg.Participants(7), 1)
	require.Equal(t, []int{wire.CloseNormal}, c1.closeCodes())

	frames := c2.decoded(t)
	require.Len(t, frames, 1)
	require.Equal(t, wire.KindLeft, frames[0].Kind)
	require.Equal(t, "u1", frames[0].Username)

	reg.Leave(7, 2)
	require.Empty(t, reg.Participants(7))
	require.Empty(t, reg.Rooms())

	reg.Leave(7, 2)
	reg.Leave(99, 1)
}

func TestJoin_InvalidParticipant(t *testing.T) {
	reg := newRegistry()

	for _, tc := range []struct {
		lobby, user int64
		name        string
		conn        domain.ConnectionHandle
	}{
		{0, 1, "u1", &fakeConn{}},
		{7, 0, "u1", &fakeConn{}},
		{7, 1, "", &fakeConn{}},
		{7, 1, "u1", nil},
	} {
		_, err := reg.Join(tc.lobby, tc.user, tc.name, tc.conn)
		require.ErrorIs(t, err, domain.ErrInvalidParticipant)
	}
	require.Empty(t, reg.Rooms())
}

func TestJoin_LastJoinWins(t *testing.T) {
	reg := newRegistry()
	watcher := &fakeConn{}
	first, second := &fakeConn{}, &fakeConn{}

	_, err := reg.Join(7, 2, "u2", watcher)
	require.NoError(t, err)
	old, err := reg.Join(7, 1, "u1", first)
	require.NoError(t, err)
	cur, err := reg.Join(7, 1, "u1", second)
	require.NoError(t, err)

	parts := reg.Participants(7)
	require.Len(t, parts, 2)
	for _, p := range parts {
		if p.UserID == 1 {
			require.Same(t, second, p.Conn)
		}
	}
	require.Equal(t, []int{wire.CloseSuperseded}, first.closeCodes())
	require.Empty(t, second.closeCodes())

	for _, fr := range watcher.decoded(t) {
		require.NotEqual(t, wire.KindLeft, fr.Kind, "eviction must not announce a departure")
	}

	// the superseded participant can neither speak nor remove its successor
	_, err = reg.Broadcast(7, old, "stale")
	require.ErrorIs(t, err, domain.ErrNotInRoom)
	require.False(t, reg.Detach(old))
	require.Len(t, reg.Participants(7), 2)

	require.True(t, reg.Detach(cur))
	require.Len(t, reg.Participants(7), 1)
}

func TestBroadcast_AssignsIDAndDeliversToSender(t *testing.T) {
	reg := newRegistry()
	c1 := &fakeConn{}

	u1, err := reg.Join(7, 1, "u1", c1)
	require.NoError(t, err)

	msg, err := reg.Broadcast(7, u1, "hello")
	require.NoError(t, err)

	want := domain.ChatMessage{ID: 101, LobbyID: 7, UserID: 1, Username: "u1", Content: "hello", Timestamp: fixed}
	require.Equal(t, want, msg)

	frames := c1.decoded(t)
	require.Len(t, frames, 1)
	require.Equal(t, wire.KindChat, frames[0].Kind)
	require.Equal(t, want, frames[0].Message)
}

func TestBroadcast_RelaysContentVerbatim(t *testing.T) {
	reg := newRegistry()
	c1, c2 := &fakeConn{}, &fakeConn{}

	u1, err := reg.Join(7, 1, "u1", c1)
	require.NoError(t, err)
	_, err = reg.Join(7, 2, "u2", c2)
	require.NoError(t, err)

	const sent = "    indented code\n"
	msg, err := reg.Broadcast(7, u1, sent)
	require.NoError(t, err)
	require.Equal(t, sent, msg.Content)

	got := c2.decoded(t)
	require.Len(t, got, 1)
	require.Equal(t, sent, got[0].Message.Content)
}

func TestJoin_NoticeGoesToOthersOnly(t *testing.T) {
	reg := newRegistry()
	c1, c2 := &fakeConn{}, &fakeConn{}

	_, err := reg.Join(7, 1, "u1", c1)
	require.NoError(t, err)
	_, err = reg.Join(7, 2, "u2", c2)
	require.NoError(t, err)

	got := c1.decoded(t)
	require.Len(t, got, 1)
	require.Equal(t, wire.KindJoined, got[0].Kind)
	require.Equal(t, "u2 has joined", got[0].Message.Content)
	require.Equal(t, int64(0), got[0].Message.UserID)
	require.Equal(t, "System", got[0].Message.Username)

	require.Empty(t, c2.decoded(t))
}

func TestBroadcast_Validation(t *testing.T) {
	reg := newRegistry(room.WithMaxContent(5))
	u1, err := reg.Join(7, 1, "u1", &fakeConn{})
	require.NoError(t, err)

	_, err = reg.Broadcast(7, u1, "   ")
	require.ErrorIs(t, err, domain.ErrEmptyMessage)

	_, err = reg.Broadcast(7, u1, "toolong")
	require.ErrorIs(t, err, domain.ErrMessageTooLong)

	msg, err := reg.Broadcast(7, u1, "  héllo ")
	require.NoError(t, err)
	require.Equal(t, "  héllo ", msg.Content)

	_, err = reg.Broadcast(8, u1, "hi")
	require.ErrorIs(t, err, domain.ErrNotInRoom)

	_, err = reg.Broadcast(7, nil, "hi")
	require.ErrorIs(t, err, domain.ErrNotInRoom)
}

func TestBroadcast_FailedDeliveryIsImplicitLeave(t *testing.T) {
	reg := newRegistry()
	c1, c2, dead := &fakeConn{}, &fakeConn{}, &fakeConn{}

	u1, err := reg.Join(7, 1, "u1", c1)
	require.NoError(t, err)
	_, err = reg.Join(7, 2, "u2", c2)
	require.NoError(t, err)
	_, err = reg.Join(7, 3, "u3", dead)
	require.NoError(t, err)

	dead.mu.Lock()
	dead.fail = true
	dead.mu.Unlock()

	_, err = reg.Broadcast(7, u1, "hello")
	require.NoError(t, err)

	require.Len(t, reg.Participants(7), 2)
	require.Equal(t, []int{wire.CloseDeliveryFailed}, dead.closeCodes())

	for _, c := range []*fakeConn{c1, c2} {
		frames := c.decoded(t)
		last := frames[len(frames)-1]
		require.Equal(t, wire.KindLeft, last.Kind)
		require.Equal(t, "u3", last.Username)
		require.Equal(t, "hello", frames[len(frames)-2].Message.Content)
	}
}

func TestBroadcast_SameOrderForEveryParticipant(t *testing.T) {
	reg := newRegistry()
	conns := []*fakeConn{{}, {}, {}}
	parts := make([]*domain.Participant, len(conns))
	for i, c := range conns {
		p, err := reg.Join(7, int64(i+1), fmt.Sprintf("u%d", i+1), c)
		require.NoError(t, err)
		parts[i] = p
	}

	const perSender = 50
	var wg sync.WaitGroup
	for _, sender := range parts[:2] {
		wg.Add(1)
		go func(p *domain.Participant) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				_, err := reg.Broadcast(7, p, fmt.Sprintf("%s-%d", p.Username, i))
				require.NoError(t, err)
			}
		}(sender)
	}
	wg.Wait()

	var reference []int64
	for i, c := range conns {
		var ids []int64
		for _, fr := range c.decoded(t) {
			if fr.Kind == wire.KindChat {
				ids = append(ids, fr.Message.ID)
			}
		}
		require.Len(t, ids, 2*perSender)
		for j := 1; j < len(ids); j++ {
			require.Greater(t, ids[j], ids[j-1])
		}
		if i == 0 {
			reference = ids
			continue
		}
		require.Equal(t, reference, ids)
	}
}

func TestRooms_AreIndependent(t *testing.T) {
	reg := newRegistry()
	a, b := &fakeConn{}, &fakeConn{}

	pa, err := reg.Join(1, 1, "u1", a)
	require.NoError(t, err)
	_, err = reg.Join(2, 2, "u2", b)
	require.NoError(t, err)

	_, err = reg.Broadcast(1, pa, "only lobby one")
	require.NoError(t, err)

	require.Len(t, a.decoded(t), 1)
	require.Empty(t, b.decoded(t))
	require.Equal(t, []int64{1, 2}, reg.Rooms())
}

func TestEnvelopeFormat(t *testing.T) {
	reg := newRegistry(room.WithFormat(wire.FormatEnvelope))
	c1 := &fakeConn{}

	_, err := reg.Join(7, 1, "u1", c1)
	require.NoError(t, err)
	_, err = reg.Join(7, 2, "u2", &fakeConn{})
	require.NoError(t, err)

	c1.mu.Lock()
	raw := string(c1.frames[0])
	c1.mu.Unlock()
	require.True(t, strings.HasPrefix(raw, `{"kind":"joined"`), raw)
}

func TestClose_ShutsEveryoneDown(t *testing.T) {
	reg := newRegistry()
	c1, c2 := &fakeConn{}, &fakeConn{}

	_, err := reg.Join(7, 1, "u1", c1)
	require.NoError(t, err)
	_, err = reg.Join(8, 2, "u2", c2)
	require.NoError(t, err)

	reg.Close()
	reg.Close()

	require.Equal(t, []int{wire.CloseGoingAway}, c1.closeCodes())
	require.Equal(t, []int{wire.CloseGoingAway}, c2.closeCodes())
	require.Empty(t, reg.Rooms())

	_, err = reg.Join(7, 3, "u3", &fakeConn{})
	require.ErrorIs(t, err, room.ErrClosed)
}

func TestJoinLeave_ConcurrentChurn(t *testing.T) {
	reg := newRegistry()

	var wg sync.WaitGroup
	for u := int64(1); u <= 20; u++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				p, err := reg.Join(7, uid, fmt.Sprintf("u%d", uid), &fakeConn{})
				require.NoError(t, err)
				if i%2 == 0 {
					reg.Detach(p)
				} else {
					reg.Leave(7, uid)
				}
			}
		}(u)
	}
	wg.Wait()

	require.Empty(t, reg.Participants(7))
	require.Empty(t, reg.Rooms())
}
