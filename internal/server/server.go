// Package server wires the process-wide state spec.md §3 describes
// ("Server state... a vector of databases, a listening socket, a
// connection list... counters... a configuration snapshot, and a shared-
// object pool") together with the persistence pipeline and cron
// subsystem, the way cmd/cc-backend/main.go's flag-parse → config-load →
// subsystem-init → serve → signal-wait shape wires the teacher's own
// process together.
package server

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mkvs-io/kvstored/internal/config"
	"github.com/mkvs-io/kvstored/internal/connserver"
	"github.com/mkvs-io/kvstored/internal/eventloop"
	"github.com/mkvs-io/kvstored/internal/keyspace"
	"github.com/mkvs-io/kvstored/internal/logx"
	"github.com/mkvs-io/kvstored/internal/persistence/aof"
	"github.com/mkvs-io/kvstored/internal/persistence/rdb"
	"github.com/mkvs-io/kvstored/internal/persistence/rewrite"
)

// Server is the whole process: configuration, keyspace, connection
// manager, persistence pipeline and cron loop.
type Server struct {
	Config *config.Config
	Store  *keyspace.Store
	Conn   *connserver.Server

	runID     string
	startTime time.Time

	mu        sync.Mutex
	dirty     int64
	lastSave  time.Time
	aofWriter *aof.Writer

	rewriter  *rewrite.Coordinator
	cronLoop  *eventloop.Loop
	scheduler gocron.Scheduler
}

// New constructs a Server from cfg, loading any existing snapshot/AOF
// from cfg.Dir, but does not yet start listening (see Listen).
func New(cfg *config.Config) (*Server, error) {
	store := keyspace.NewStore(cfg.Databases)

	s := &Server{
		Config:    cfg,
		Store:     store,
		runID:     uuid.NewString(),
		startTime: time.Now(),
		rewriter:  rewrite.New(rate.NewLimiter(rate.Limit(50000), 1000)),
	}

	if err := s.loadPersisted(); err != nil {
		return nil, err
	}

	conn := connserver.NewServer(store)
	conn.MaxClients = cfg.MaxClients
	conn.IdleTimeout = time.Duration(cfg.Timeout) * time.Second
	conn.RequirePass = cfg.RequirePass
	conn.MaxMemory = cfg.MaxMemory
	conn.UsedMemory = usedMemory
	conn.Dirty = &s.dirty
	conn.Shutdown = s.shutdownRequested
	conn.Save = s.Save
	conn.BGSave = s.BGSave
	conn.BGRewriteAOF = s.BGRewriteAOF
	conn.LastSave = s.LastSaveTime
	conn.Info = s.Info
	conn.OnMutate = s.onMutate
	s.Conn = conn

	if cfg.AppendOnly {
		w, err := s.openAOF()
		if err != nil {
			return nil, fmt.Errorf("server: opening append-only file: %w", err)
		}
		s.aofWriter = w
	}

	loop, err := eventloop.New()
	if err != nil {
		return nil, fmt.Errorf("server: creating cron event loop: %w", err)
	}
	s.cronLoop = loop

	return s, nil
}

func (s *Server) dbfilename() string {
	return filepath.Join(s.Config.Dir, s.Config.DBFilename)
}

func (s *Server) aofPath() string {
	return filepath.Join(s.Config.Dir, s.Config.AppendFilename)
}

// loadPersisted implements spec.md §4.5's startup load ordering: the AOF,
// being the more complete record, takes precedence over the RDB snapshot
// when appendonly is enabled (matching original_source's own preference),
// falling back to the snapshot otherwise.
func (s *Server) loadPersisted() error {
	if s.Config.AppendOnly {
		if _, err := os.Stat(s.aofPath()); err == nil {
			if err := aof.Replay(s.aofPath(), s.Store); err != nil {
				return fmt.Errorf("server: replaying append-only file: %w", err)
			}
			logx.Infof("server: loaded keyspace from %s", s.aofPath())
			return nil
		}
	}
	if _, err := os.Stat(s.dbfilename()); err == nil {
		if err := rdb.Load(s.dbfilename(), s.Store, time.Now()); err != nil {
			return fmt.Errorf("server: loading snapshot: %w", err)
		}
		logx.Infof("server: loaded keyspace from %s", s.dbfilename())
	}
	return nil
}

func (s *Server) openAOF() (*aof.Writer, error) {
	policy, err := aof.ParseFsyncPolicy(s.Config.AppendFsync)
	if err != nil {
		return nil, err
	}
	return aof.Open(s.aofPath(), policy)
}

// onMutate feeds the AOF appender and any in-flight rewrite buffer,
// wired as connserver.Server.OnMutate (spec.md §4.5.2/§4.5.3).
func (s *Server) onMutate(dbIndex int, args [][]byte) {
	now := time.Now()
	s.rewriter.RecordMutation(dbIndex, now, args)

	s.mu.Lock()
	w := s.aofWriter
	s.mu.Unlock()
	if w == nil {
		return
	}
	if err := w.Append(dbIndex, now, args); err != nil {
		// spec.md §7: "AOF write failure in parent is fatal (the server
		// exits) because partial history undermines correctness
		// guarantees."
		logx.Fatalf("server: fatal AOF write error: %v", err)
	}
}

func (s *Server) shutdownRequested() {
	logx.Note("server: SHUTDOWN received, saving and exiting")
	if err := s.Save(); err != nil {
		logx.Errorf("server: save on shutdown failed: %v", err)
	}
	os.Exit(0)
}

// Save performs a synchronous snapshot write (SAVE), per spec.md §4.5.1.
func (s *Server) Save() error {
	if err := rdb.Save(s.dbfilename(), s.Store, s.Config.RDBCompression, time.Now()); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastSave = time.Now()
	s.dirty = 0
	s.mu.Unlock()
	return nil
}

// BGSave starts a background snapshot save (BGSAVE), per spec.md §4.5.3.
func (s *Server) BGSave() error {
	return s.rewriter.BeginRDB(s.Store, s.dbfilename(), s.Config.RDBCompression, time.Now())
}

// BGRewriteAOF starts a background AOF rewrite (BGREWRITEAOF), per
// spec.md §4.5.3.
func (s *Server) BGRewriteAOF() error {
	if !s.Config.AppendOnly {
		return fmt.Errorf("append-only file not enabled")
	}
	return s.rewriter.BeginAOF(s.Store, s.aofPath(), time.Now())
}

// LastSaveTime reports the last successful SAVE/BGSAVE completion time.
func (s *Server) LastSaveTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSave
}

// Info renders the INFO command's bulk reply payload.
func (s *Server) Info() string {
	s.mu.Lock()
	dirty := s.dirty
	lastSave := s.lastSave
	s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "run_id:%s\r\n", s.runID)
	fmt.Fprintf(&b, "uptime_in_seconds:%d\r\n", int64(time.Since(s.startTime).Seconds()))
	fmt.Fprintf(&b, "tcp_port:%d\r\n", s.Config.Port)
	fmt.Fprintf(&b, "connected_clients:%d\r\n", s.Conn.ClientCount())
	fmt.Fprintf(&b, "used_memory:%d\r\n", usedMemory())
	fmt.Fprintf(&b, "rdb_changes_since_last_save:%d\r\n", dirty)
	fmt.Fprintf(&b, "rdb_last_save_time:%d\r\n", lastSave.Unix())
	fmt.Fprintf(&b, "rdb_bgsave_in_progress:%d\r\n", boolInt(s.rewriter.Busy()))
	fmt.Fprintf(&b, "aof_enabled:%d\r\n", boolInt(s.Config.AppendOnly))
	fmt.Fprintf(&b, "aof_rewrite_in_progress:%d\r\n", boolInt(s.rewriter.Busy()))
	fmt.Fprintf(&b, "db_count:%d\r\n", s.Store.Count())
	return b.String()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func usedMemory() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc)
}

// Listen starts accepting client connections and the cron loop.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Bind, s.Config.Port)
	if err := s.Conn.Listen(addr); err != nil {
		return err
	}
	s.startCron()
	go func() {
		if err := s.cronLoop.Run(); err != nil {
			logx.Errorf("server: cron event loop exited: %v", err)
		}
	}()
	logx.Notef("server: listening on %s", addr)
	return nil
}

// Close stops accepting connections and the cron loop.
func (s *Server) Close() error {
	s.stopCron()
	s.cronLoop.Stop()
	s.cronLoop.Close()
	return s.Conn.Close()
}
