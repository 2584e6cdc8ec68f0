package connserver

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkvs-io/kvstored/internal/command"
	"github.com/mkvs-io/kvstored/internal/keyspace"
	"github.com/mkvs-io/kvstored/internal/logx"
)

// Server accepts connections and dispatches their commands against a
// shared keyspace, serializing every dispatch through execMu (see the
// package doc for why this replaces spec.md's raw-fd reactor).
type Server struct {
	Store         *keyspace.Store
	MaxClients    int
	IdleTimeout   time.Duration
	RequirePass   string
	MaxMemory     int64
	UsedMemory    func() int64
	Dirty         *int64

	Shutdown     func()
	Save         func() error
	BGSave       func() error
	BGRewriteAOF func() error
	LastSave     func() time.Time
	Info         func() string

	// OnMutate is invoked, still under execMu, whenever a dispatched
	// command increments Dirty — the hook internal/server uses to feed
	// the AOF appender and the in-flight rewrite buffer (spec.md §4.5.2
	// "every mutating command is appended", §4.5.3 "parent... appends
	// every mutation to an in-memory rewrite-buffer"). dbIndex is the
	// database the command executed against.
	OnMutate func(dbIndex int, args [][]byte)

	listener net.Listener
	execMu   sync.Mutex

	nextClientID int64
	clientsMu    sync.Mutex
	clients      map[int64]*Client

	closing atomic.Bool
}

// NewServer wires a Server against an already-constructed keyspace.
func NewServer(store *keyspace.Store) *Server {
	return &Server{
		Store:   store,
		clients: make(map[int64]*Client),
	}
}

// Listen binds addr (host:port) and begins accepting in the background.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	go s.acceptLoop()
	return nil
}

// Close stops accepting and closes every live connection.
func (s *Server) Close() error {
	s.closing.Store(true)
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.clientsMu.Lock()
	for _, c := range s.clients {
		c.close()
	}
	s.clientsMu.Unlock()
	return err
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() {
				return
			}
			logx.Errorf("connserver: accept failed: %v", err)
			continue
		}
		s.clientsMu.Lock()
		over := s.MaxClients > 0 && len(s.clients) >= s.MaxClients
		s.clientsMu.Unlock()
		if over {
			conn.Write([]byte("-ERR max number of clients reached\r\n"))
			conn.Close()
			continue
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.SetNoDelay(true)
		}
		s.nextClientID++
		c := newClient(s.nextClientID, conn)
		s.clientsMu.Lock()
		s.clients[c.id] = c
		s.clientsMu.Unlock()
		go s.serve(c)
	}
}

func (s *Server) serve(c *Client) {
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c.id)
		s.clientsMu.Unlock()
		c.close()
	}()

	for {
		args, err := c.reader.Command()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logx.Debugf("connserver: client %d read error: %v", c.id, err)
			}
			return
		}
		if len(args) == 0 {
			continue
		}
		c.lastActive = time.Now()

		reply := s.execute(c, args)
		if len(reply) > 0 {
			if werr := c.Write(reply); werr != nil {
				return
			}
		}
		if isQuit(args) {
			return
		}
	}
}

func isQuit(args [][]byte) bool {
	return len(args) == 1 && (string(args[0]) == "quit" || string(args[0]) == "QUIT")
}

// execute runs one command under execMu, the single-owner serialization
// point for the whole keyspace (spec.md §5 "the keyspace is exclusively
// owned by the main loop").
func (s *Server) execute(c *Client, args [][]byte) []byte {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	dbIndex := c.dbIndex
	var dirtyBefore int64
	if s.Dirty != nil {
		dirtyBefore = *s.Dirty
	}

	ctx := &command.Context{
		Store:         s.Store,
		DBIndex:       c.dbIndex,
		Now:           time.Now,
		Dirty:         s.Dirty,
		UsedMemory:    s.UsedMemory,
		MaxMemory:     s.MaxMemory,
		Authenticated: &c.authenticated,
		RequirePass:   s.RequirePass,
		Shutdown:      s.Shutdown,
		Save:          s.Save,
		BGSave:        s.BGSave,
		BGRewriteAOF:  s.BGRewriteAOF,
		LastSave:      s.LastSave,
		Info:          s.Info,
	}
	command.Dispatch(ctx, args)
	c.dbIndex = ctx.DBIndex

	if s.OnMutate != nil && s.Dirty != nil && *s.Dirty != dirtyBefore {
		s.OnMutate(dbIndex, args)
	}
	return ctx.Out
}

// WithExecLock runs f under the same execMu every client dispatch holds,
// so background maintenance (cron expiration sampling, save-rule checks)
// observes and mutates the keyspace with the same serial-execution
// guarantee as client commands (spec.md §5 "the keyspace is exclusively
// owned by the main loop").
func (s *Server) WithExecLock(f func()) {
	s.execMu.Lock()
	defer s.execMu.Unlock()
	f()
}

// SweepIdleClients closes connections idle longer than IdleTimeout, per
// spec.md §4.4 "Cancellation / timeouts" (the cron-driven idle-close
// task; this store has no master/slave/monitor roles to exempt).
func (s *Server) SweepIdleClients(now time.Time) int {
	if s.IdleTimeout <= 0 {
		return 0
	}
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	closed := 0
	for id, c := range s.clients {
		if c.IdleFor(now) > s.IdleTimeout {
			c.close()
			delete(s.clients, id)
			closed++
		}
	}
	return closed
}

// Addr returns the listener's bound address, useful when Listen was
// given port 0 and the caller needs to discover which port was chosen.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// ClientCount returns the number of currently connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}
