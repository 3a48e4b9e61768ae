package server

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/miniexpress/internal/observability"
)

// ConnectionTracker tracks live connections for shutdown and metrics.
type ConnectionTracker struct {
	connections sync.Map
	connCount   int64
	logger      observability.Logger
}

// TrackedConnection is a live connection with its metadata.
type TrackedConnection struct {
	ID         string
	RemoteAddr string
	LocalAddr  string
	StartTime  time.Time
	bytesIn    atomic.Int64
	bytesOut   atomic.Int64
	conn       net.Conn
}

// NewConnectionTracker creates a new connection tracker.
func NewConnectionTracker(logger observability.Logger) *ConnectionTracker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ConnectionTracker{logger: logger}
}

// Add registers conn and assigns it a new ID.
func (t *ConnectionTracker) Add(conn net.Conn) *TrackedConnection {
	tracked := &TrackedConnection{
		ID:        uuid.New().String(),
		StartTime: time.Now(),
		conn:      conn,
	}
	if addr := conn.RemoteAddr(); addr != nil {
		tracked.RemoteAddr = addr.String()
	}
	if addr := conn.LocalAddr(); addr != nil {
		tracked.LocalAddr = addr.String()
	}

	t.connections.Store(tracked.ID, tracked)
	atomic.AddInt64(&t.connCount, 1)

	t.logger.Debug("connection accepted",
		observability.String("conn_id", tracked.ID),
		observability.String("remote_addr", tracked.RemoteAddr),
	)

	return tracked
}

// Remove forgets a connection.
func (t *ConnectionTracker) Remove(id string) {
	if _, loaded := t.connections.LoadAndDelete(id); loaded {
		atomic.AddInt64(&t.connCount, -1)
	}
}

// Get returns a tracked connection by ID.
func (t *ConnectionTracker) Get(id string) *TrackedConnection {
	if v, ok := t.connections.Load(id); ok {
		return v.(*TrackedConnection)
	}
	return nil
}

// Count returns the current number of live connections.
func (t *ConnectionTracker) Count() int {
	return int(atomic.LoadInt64(&t.connCount))
}

// List returns all tracked connections.
func (t *ConnectionTracker) List() []*TrackedConnection {
	var connections []*TrackedConnection
	t.connections.Range(func(_, value interface{}) bool {
		connections = append(connections, value.(*TrackedConnection))
		return true
	})
	return connections
}

// CloseAll closes every tracked connection. Handlers blocked on I/O
// return with an error and remove themselves.
func (t *ConnectionTracker) CloseAll() {
	t.connections.Range(func(_, value interface{}) bool {
		tracked := value.(*TrackedConnection)
		if err := tracked.Close(); err != nil {
			t.logger.Debug("error closing connection",
				observability.String("conn_id", tracked.ID),
				observability.Error(err),
			)
		}
		return true
	})
}

// Stats returns bytes read, bytes written, and the connection age.
func (tc *TrackedConnection) Stats() (bytesIn, bytesOut int64, duration time.Duration) {
	return tc.bytesIn.Load(), tc.bytesOut.Load(), time.Since(tc.StartTime)
}

// Close closes the underlying connection.
func (tc *TrackedConnection) Close() error {
	if tc.conn != nil {
		return tc.conn.Close()
	}
	return nil
}

// countingConn counts bytes transferred on a tracked connection.
type countingConn struct {
	net.Conn
	tracked *TrackedConnection
}

func (c *countingConn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	if n > 0 {
		c.tracked.bytesIn.Add(int64(n))
	}
	return n, err
}

func (c *countingConn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	if n > 0 {
		c.tracked.bytesOut.Add(int64(n))
	}
	return n, err
}
