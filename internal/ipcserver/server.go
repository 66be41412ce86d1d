// Package ipcserver implements the stream-oriented local IPC server
// (C7): a Unix domain socket accepting multiple clients, newline-
// delimited JSON command intake with priority classification, and
// fan-out broadcast of state snapshots. Grounded on the original
// daemon's socket/accept/recv-loop structure
// (armatron_software/controls/src/real_time_daemon.cpp), rebuilt
// around net.Listener/bufio.Scanner and a goroutine per connection in
// the teacher's style of one goroutine per long-lived I/O peer.
package ipcserver

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/itohio/armctl/pkg/logger"
)

// Server accepts clients on a Unix domain socket, queues well-formed
// commands for the control thread to drain, and fans out broadcast
// snapshots to every connected client.
type Server struct {
	path string

	ln net.Listener

	queueMu sync.Mutex
	queue   []Command

	clientsMu sync.Mutex
	clients   map[uuid.UUID]net.Conn

	// OnEmergency is invoked, with the queue already cleared, when a
	// line classifies as high priority (setESTOP/setHoldPosition). The
	// raw decoded Command is passed through; the emergency mutex
	// acquisition happens inside the callback (normally bound to
	// statemachine.Machine.SetEstop/SetHold), per spec §4.7/§5.
	OnEmergency func(cmd Command)
}

// New creates a Server bound to the given Unix socket path (not yet
// listening).
func New(path string) *Server {
	return &Server{path: path, clients: make(map[uuid.UUID]net.Conn)}
}

// Start removes any stale socket file, binds, and begins accepting
// connections in a background goroutine. A bind failure is fatal per
// spec §7(f) and is returned to the caller.
func (s *Server) Start() error {
	_ = os.Remove(s.path)

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	s.ln = ln

	go s.acceptLoop()
	logger.Log.Info().Str("path", s.path).Msg("ipc server listening")
	return nil
}

// Stop closes the listener and every connected client. Detached reader
// goroutines exit on their own EOF/error.
func (s *Server) Stop() {
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.clientsMu.Lock()
	for id, c := range s.clients {
		_ = c.Close()
		delete(s.clients, id)
	}
	s.clientsMu.Unlock()
	_ = os.Remove(s.path)
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			logger.Log.Info().Err(err).Msg("ipc accept loop exiting")
			return
		}
		id := uuid.New()
		s.clientsMu.Lock()
		s.clients[id] = conn
		s.clientsMu.Unlock()

		go s.readLoop(id, conn)
	}
}

func (s *Server) readLoop(id uuid.UUID, conn net.Conn) {
	defer s.removeClient(id, conn)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		s.handleLine(id, line)
	}
}

func (s *Server) removeClient(id uuid.UUID, conn net.Conn) {
	_ = conn.Close()
	s.clientsMu.Lock()
	delete(s.clients, id)
	s.clientsMu.Unlock()
}

// isHighPriority matches the original daemon's substring check: it
// looks for the literal cmd value in the raw line bytes. handleLine
// calls it only after the line has decoded as JSON with a known cmd;
// malformed or unknown lines are dropped before classification.
func isHighPriority(line []byte) bool {
	s := string(line)
	return strings.Contains(s, `"cmd":"setESTOP"`) || strings.Contains(s, `"cmd": "setESTOP"`) ||
		strings.Contains(s, `"cmd":"setHoldPosition"`) || strings.Contains(s, `"cmd": "setHoldPosition"`)
}

func (s *Server) handleLine(clientID uuid.UUID, line []byte) {
	var cmd Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		logger.Log.Warn().Err(err).Str("client", clientID.String()).Msg("malformed ipc line, dropped")
		return
	}
	if !KnownCommand(cmd.Cmd) {
		logger.Log.Warn().Str("cmd", cmd.Cmd).Msg("unknown ipc command, dropped")
		return
	}

	if isHighPriority(line) {
		s.queueMu.Lock()
		s.queue = s.queue[:0]
		s.queueMu.Unlock()

		logger.Log.Warn().Str("cmd", cmd.Cmd).Msg("high priority command, queue cleared")
		if s.OnEmergency != nil {
			s.OnEmergency(cmd)
		}
		return
	}

	s.queueMu.Lock()
	s.queue = append(s.queue, cmd)
	s.queueMu.Unlock()
}

// Drain returns and clears every command queued since the last Drain,
// intended to be called once per control tick with the robot's
// emergency mutex already held by the caller. Drain holds the queue
// mutex only while it swaps the queue out, so the acquisition order is
// emergency mutex, then queue mutex; the queue mutex is not held while
// the drained commands are dispatched.
func (s *Server) Drain() []Command {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	out := s.queue
	s.queue = nil
	return out
}

// Broadcast fans a pre-serialized snapshot out to every connected
// client; a client whose write fails is closed and removed.
func (s *Server) Broadcast(payload []byte) {
	payload = append(payload, '\n')

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for id, conn := range s.clients {
		if _, err := conn.Write(payload); err != nil {
			_ = conn.Close()
			delete(s.clients, id)
		}
	}
}
