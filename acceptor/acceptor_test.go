package acceptor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/go-gatekeeper/banlist"
	"github.com/cyberinferno/go-gatekeeper/logger"
)

// fakeConn is a minimal net.Conn with a controllable remote address.
type fakeConn struct {
	remote     net.Addr
	closed     atomic.Bool
	closeCalls atomic.Int32
}

func newFakeConn(ip string, port int) *fakeConn {
	return &fakeConn{
		remote: &net.TCPAddr{IP: net.ParseIP(ip), Port: port},
	}
}

func (c *fakeConn) Read(b []byte) (int, error)  { return 0, io.EOF }
func (c *fakeConn) Write(b []byte) (int, error) { return len(b), nil }
func (c *fakeConn) Close() error {
	c.closed.Store(true)
	c.closeCalls.Add(1)
	return nil
}
func (c *fakeConn) LocalAddr() net.Addr                { return &net.TCPAddr{} }
func (c *fakeConn) RemoteAddr() net.Addr               { return c.remote }
func (c *fakeConn) SetDeadline(t time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

// fakeTransport is an in-process Transport that records lifecycle calls.
type fakeTransport struct {
	listenErr     error
	listenAddr    string
	listenCalls   int
	shutdownCalls int
}

func (t *fakeTransport) Listen(addr string, handler ConnHandler) error {
	t.listenCalls++
	t.listenAddr = addr
	return t.listenErr
}

func (t *fakeTransport) Shutdown(ctx context.Context) error {
	t.shutdownCalls++
	return nil
}

func newListeningAcceptor(t *testing.T, opts ...Option) (*Acceptor, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{}
	a := New(transport, logger.NewNopLogger(), opts...)
	require.NoError(t, a.Bind(":0"))
	require.Equal(t, Listening, a.State())
	return a, transport
}

func TestNew(t *testing.T) {
	a := New(&fakeTransport{}, logger.NewNopLogger())
	require.NotNil(t, a)
	assert.Equal(t, Closed, a.State())
	assert.True(t, a.IsClosed())
	assert.False(t, a.IsModeChanging())
	assert.Equal(t, 0, a.GetSessionCount())
}

func TestAcceptor_Bind(t *testing.T) {
	t.Run("transitions to Listening and passes the address through", func(t *testing.T) {
		transport := &fakeTransport{}
		a := New(transport, logger.NewNopLogger())

		require.NoError(t, a.Bind(":8484"))

		assert.Equal(t, Listening, a.State())
		assert.False(t, a.IsClosed())
		assert.Equal(t, 1, transport.listenCalls)
		assert.Equal(t, ":8484", transport.listenAddr)
	})

	t.Run("bind while listening is rejected", func(t *testing.T) {
		a, _ := newListeningAcceptor(t)
		assert.ErrorIs(t, a.Bind(":8485"), ErrNotClosed)
	})

	t.Run("bind failure reports the error and stays Closed", func(t *testing.T) {
		bindErr := errors.New("address already in use")
		transport := &fakeTransport{listenErr: bindErr}
		a := New(transport, logger.NewNopLogger())

		err := a.Bind(":8484")

		require.Error(t, err)
		assert.ErrorIs(t, err, bindErr)
		assert.Equal(t, Closed, a.State())
		assert.Equal(t, 0, a.GetSessionCount())
	})
}

func TestAcceptor_OnNewConnection_gating(t *testing.T) {
	t.Run("dropped while Closed without touching the registry", func(t *testing.T) {
		a := New(&fakeTransport{}, logger.NewNopLogger())
		conn := newFakeConn("10.0.0.1", 49152)

		a.OnNewConnection(conn)

		assert.True(t, conn.closed.Load())
		assert.Equal(t, 0, a.GetSessionCount())
		assert.Equal(t, 0, a.IPCount("10.0.0.1"))
	})

	t.Run("dropped while mode changing", func(t *testing.T) {
		a, _ := newListeningAcceptor(t)
		a.SetModeChanging(true)
		conn := newFakeConn("10.0.0.1", 49152)

		a.OnNewConnection(conn)

		assert.True(t, conn.closed.Load())
		assert.Equal(t, 0, a.GetSessionCount())
	})

	t.Run("admission resumes as soon as the mode change clears", func(t *testing.T) {
		a, _ := newListeningAcceptor(t)
		a.SetModeChanging(true)
		a.SetModeChanging(false)

		conn := newFakeConn("10.0.0.1", 49152)
		a.OnNewConnection(conn)

		assert.False(t, conn.closed.Load())
		assert.Equal(t, 1, a.GetSessionCount())
	})

	t.Run("existing sessions survive a mode change", func(t *testing.T) {
		a, _ := newListeningAcceptor(t)
		conn := newFakeConn("10.0.0.1", 49152)
		a.OnNewConnection(conn)

		a.SetModeChanging(true)

		assert.False(t, conn.closed.Load())
		assert.Equal(t, 1, a.GetSessionCount())
	})

	t.Run("nil connection is ignored", func(t *testing.T) {
		a, _ := newListeningAcceptor(t)
		a.OnNewConnection(nil)
		assert.Equal(t, 0, a.GetSessionCount())
	})
}

func TestAcceptor_admission(t *testing.T) {
	t.Run("admitted connection is registered under its serial number", func(t *testing.T) {
		a, _ := newListeningAcceptor(t)

		a.OnNewConnection(newFakeConn("10.0.0.1", 49152))

		require.Equal(t, 1, a.GetSessionCount())
		sess, ok := a.GetSession(1)
		require.True(t, ok)
		assert.Equal(t, uint32(1), sess.SerialNo())
		assert.Equal(t, "10.0.0.1", sess.RemoteIP())
		assert.False(t, sess.IsClosed())
	})

	t.Run("throttle counts track admissions per address", func(t *testing.T) {
		a, _ := newListeningAcceptor(t)

		for i := 0; i < 5; i++ {
			a.OnNewConnection(newFakeConn("10.0.0.1", 50000+i))
		}
		a.OnNewConnection(newFakeConn("10.0.0.2", 50100))

		assert.Equal(t, 5, a.IPCount("10.0.0.1"))
		assert.Equal(t, 1, a.IPCount("10.0.0.2"))
		assert.Equal(t, 6, a.GetSessionCount())
	})

	t.Run("concurrent admissions get unique serials and are all registered", func(t *testing.T) {
		a, _ := newListeningAcceptor(t)
		const n = 200

		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func(i int) {
				defer wg.Done()
				a.OnNewConnection(newFakeConn(fmt.Sprintf("10.0.%d.%d", i/250, i%250+1), 50000))
			}(i)
		}
		wg.Wait()

		assert.Equal(t, n, a.GetSessionCount())
		for sn := uint32(1); sn <= n; sn++ {
			_, ok := a.GetSession(sn)
			assert.True(t, ok, "missing serial number %d", sn)
		}
	})

	t.Run("serial start option shifts the first serial number", func(t *testing.T) {
		a, _ := newListeningAcceptor(t, WithSerialStart(500))
		a.OnNewConnection(newFakeConn("10.0.0.1", 49152))

		_, ok := a.GetSession(501)
		assert.True(t, ok)
	})
}

func TestAcceptor_softThreshold(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewZerologLogger(zerolog.New(&buf), "test", zerolog.DebugLevel)
	transport := &fakeTransport{}
	a := New(transport, log)
	require.NoError(t, a.Bind(":0"))

	for i := 0; i < 31; i++ {
		a.OnNewConnection(newFakeConn("10.0.0.1", 50000+i))
	}

	t.Run("the 31st connection is admitted, not rejected", func(t *testing.T) {
		assert.Equal(t, 31, a.GetSessionCount())
		assert.Equal(t, 31, a.IPCount("10.0.0.1"))
		sess, ok := a.GetSession(31)
		require.True(t, ok)
		assert.False(t, sess.IsClosed())
	})

	t.Run("accept report is suppressed and the source flagged above the threshold", func(t *testing.T) {
		out := buf.String()
		assert.Equal(t, 30, strings.Count(out, "connection accepted"))
		assert.Contains(t, out, "ip connection count exceeded")
	})
}

func TestAcceptor_evictionSweep(t *testing.T) {
	// Small thresholds: sweep when more than 5 sessions are registered, evict
	// addresses holding more than 3 connections.
	limits := Limits{SoftFlagThreshold: 30, SessionSweepTrigger: 5, EvictCountThreshold: 3}

	t.Run("admission past the trigger evicts the flooding address only", func(t *testing.T) {
		a, _ := newListeningAcceptor(t, WithLimits(limits))

		flood := make([]*fakeConn, 4)
		for i := range flood {
			flood[i] = newFakeConn("10.0.0.9", 50000+i)
			a.OnNewConnection(flood[i])
		}
		bystander := newFakeConn("10.0.0.2", 50100)
		a.OnNewConnection(bystander)
		require.Equal(t, 5, a.GetSessionCount())

		// 6th session pushes the registry past the trigger.
		trigger := newFakeConn("10.0.0.3", 50200)
		a.OnNewConnection(trigger)

		assert.Equal(t, 2, a.GetSessionCount())
		for _, conn := range flood {
			assert.True(t, conn.closed.Load())
		}
		assert.False(t, bystander.closed.Load())
		assert.False(t, trigger.closed.Load())

		assert.Equal(t, 0, a.IPCount("10.0.0.9"))
		assert.Equal(t, 1, a.IPCount("10.0.0.2"))
		assert.Equal(t, 1, a.IPCount("10.0.0.3"))
	})

	t.Run("flooding address can evict itself when it trips the thresholds alone", func(t *testing.T) {
		a, _ := newListeningAcceptor(t, WithLimits(Limits{
			SoftFlagThreshold:   30,
			SessionSweepTrigger: 3,
			EvictCountThreshold: 3,
		}))

		for i := 0; i < 4; i++ {
			a.OnNewConnection(newFakeConn("10.0.0.9", 50000+i))
		}

		// The 4th admission saw size 4 > 3 and its own count 4 > 3.
		assert.Equal(t, 0, a.GetSessionCount())
		assert.Equal(t, 0, a.IPCount("10.0.0.9"))
	})

	t.Run("no eviction while every address is under the count threshold", func(t *testing.T) {
		a, _ := newListeningAcceptor(t, WithLimits(limits))

		for i := 0; i < 7; i++ {
			a.OnNewConnection(newFakeConn(fmt.Sprintf("10.0.0.%d", i+1), 50000))
		}

		assert.Equal(t, 7, a.GetSessionCount())
	})
}

func TestAcceptor_RemoveSession(t *testing.T) {
	t.Run("removes the session, closes it, and releases the throttle slot", func(t *testing.T) {
		a, _ := newListeningAcceptor(t)
		conn := newFakeConn("10.0.0.1", 49152)
		a.OnNewConnection(conn)
		sess, ok := a.GetSession(1)
		require.True(t, ok)

		a.RemoveSession(sess)

		assert.Equal(t, 0, a.GetSessionCount())
		assert.True(t, conn.closed.Load())
		assert.Equal(t, 0, a.IPCount("10.0.0.1"))
		_, ok = a.GetSession(1)
		assert.False(t, ok)
	})

	t.Run("removing twice is a no-op, not an error", func(t *testing.T) {
		a, _ := newListeningAcceptor(t)
		a.OnNewConnection(newFakeConn("10.0.0.1", 49152))
		a.OnNewConnection(newFakeConn("10.0.0.1", 49153))
		sess, ok := a.GetSession(1)
		require.True(t, ok)

		a.RemoveSession(sess)
		a.RemoveSession(sess)

		assert.Equal(t, 1, a.GetSessionCount())
		assert.Equal(t, 1, a.IPCount("10.0.0.1"))
	})

	t.Run("nil session is a no-op", func(t *testing.T) {
		a, _ := newListeningAcceptor(t)
		a.RemoveSession(nil)
		assert.Equal(t, 0, a.GetSessionCount())
	})
}

func TestAcceptor_Unbind(t *testing.T) {
	t.Run("shuts the transport down and closes every session", func(t *testing.T) {
		a, transport := newListeningAcceptor(t)
		conns := make([]*fakeConn, 3)
		for i := range conns {
			conns[i] = newFakeConn(fmt.Sprintf("10.0.0.%d", i+1), 50000)
			a.OnNewConnection(conns[i])
		}

		require.NoError(t, a.Unbind(context.Background()))

		assert.Equal(t, Closed, a.State())
		assert.True(t, a.IsClosed())
		assert.Equal(t, 1, transport.shutdownCalls)
		assert.Equal(t, 0, a.GetSessionCount())
		for _, conn := range conns {
			assert.True(t, conn.closed.Load())
		}
	})

	t.Run("second unbind is rejected", func(t *testing.T) {
		a, transport := newListeningAcceptor(t)
		require.NoError(t, a.Unbind(context.Background()))

		assert.ErrorIs(t, a.Unbind(context.Background()), ErrNotListening)
		assert.Equal(t, 1, transport.shutdownCalls)
	})

	t.Run("unbind before bind is rejected", func(t *testing.T) {
		a := New(&fakeTransport{}, logger.NewNopLogger())
		assert.ErrorIs(t, a.Unbind(context.Background()), ErrNotListening)
	})

	t.Run("rebinding after unbind works", func(t *testing.T) {
		a, _ := newListeningAcceptor(t)
		require.NoError(t, a.Unbind(context.Background()))

		require.NoError(t, a.Bind(":0"))
		assert.Equal(t, Listening, a.State())

		a.OnNewConnection(newFakeConn("10.0.0.1", 49152))
		assert.Equal(t, 1, a.GetSessionCount())
	})

	t.Run("unbind is safe while admissions are arriving", func(t *testing.T) {
		a, _ := newListeningAcceptor(t)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				a.OnNewConnection(newFakeConn("10.0.0.1", 50000+i))
			}(i)
		}

		require.NoError(t, a.Unbind(context.Background()))
		wg.Wait()

		// Every connection was either admitted before the unbind collected it
		// or dropped by the gate; none may remain registered as live state.
		assert.Equal(t, Closed, a.State())
	})
}

func TestAcceptor_banList(t *testing.T) {
	t.Run("evicted addresses are banned and refused at the gate", func(t *testing.T) {
		bans := banlist.NewMemoryBanList(time.Minute)
		a, _ := newListeningAcceptor(t,
			WithLimits(Limits{SoftFlagThreshold: 30, SessionSweepTrigger: 3, EvictCountThreshold: 3}),
			WithBanList(bans, time.Minute),
		)

		for i := 0; i < 4; i++ {
			a.OnNewConnection(newFakeConn("10.0.0.9", 50000+i))
		}
		require.Equal(t, 0, a.GetSessionCount())

		banned, err := bans.IsBanned(context.Background(), "10.0.0.9")
		require.NoError(t, err)
		assert.True(t, banned)

		retry := newFakeConn("10.0.0.9", 50100)
		a.OnNewConnection(retry)
		assert.True(t, retry.closed.Load())
		assert.Equal(t, 0, a.GetSessionCount())

		// Other addresses are unaffected.
		other := newFakeConn("10.0.0.2", 50200)
		a.OnNewConnection(other)
		assert.False(t, other.closed.Load())
	})

	t.Run("without a ban list evicted addresses may reconnect", func(t *testing.T) {
		a, _ := newListeningAcceptor(t,
			WithLimits(Limits{SoftFlagThreshold: 30, SessionSweepTrigger: 3, EvictCountThreshold: 3}),
		)

		for i := 0; i < 4; i++ {
			a.OnNewConnection(newFakeConn("10.0.0.9", 50000+i))
		}
		require.Equal(t, 0, a.GetSessionCount())

		retry := newFakeConn("10.0.0.9", 50100)
		a.OnNewConnection(retry)
		assert.False(t, retry.closed.Load())
		assert.Equal(t, 1, a.GetSessionCount())
	})
}
