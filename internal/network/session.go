package network

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/vec"
)

// SessionState состояние сессии клиента
type SessionState int32

const (
	StateHandshake SessionState = iota // до успешного Login
	StatePlay                          // игрок в мире
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StatePlay:
		return "play"
	default:
		return "closed"
	}
}

const (
	sendQueueSize = 256
	writeTimeout  = 5 * time.Second
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSlowClient    = errors.New("client send queue overflow")
)

// Session одно соединение клиента. Исходящие кадры проходят через очередь
// и пишутся отдельной горутиной, чтобы тик не блокировался на медленном клиенте.
type Session struct {
	id     string
	conn   net.Conn
	server *Server

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex

	state        atomic.Int32
	lastActivity atomic.Int64
	keepAliveID  atomic.Int64

	mu       sync.RWMutex
	username string
	uuid     string
	pos      vec.Vec3
}

func newSession(id string, conn net.Conn, server *Server) *Session {
	s := &Session{
		id:     id,
		conn:   conn,
		server: server,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
	s.touch()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) UUID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uuid
}

func (s *Session) Position() vec.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pos
}

func (s *Session) setPosition(pos vec.Vec3) {
	s.mu.Lock()
	s.pos = pos
	s.mu.Unlock()
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

func (s *Session) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastActivity.Load()))
}

// Send ставит кадр в очередь отправки. Переполнение очереди закрывает сессию.
func (s *Session) Send(t protocol.MessageType, v interface{}) error {
	buf, err := protocol.Marshal(t, v)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.send <- buf:
		return nil
	default:
		s.Close("send queue overflow")
		return ErrSlowClient
	}
}

func (s *Session) sendError(code int, message string) {
	_ = s.Send(protocol.MsgError, protocol.Error{Code: code, Message: message})
}

func (s *Session) sendSystem(message string) {
	_ = s.Send(protocol.MsgChat, protocol.Chat{Message: message, Position: protocol.ChatSystem})
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case buf := <-s.send:
			if err := s.write(buf); err != nil {
				s.Close("")
				return
			}
		}
	}
}

func (s *Session) write(buf []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := s.conn.Write(buf); err != nil {
		return err
	}
	t := protocol.MessageType(uint16(buf[4])<<8 | uint16(buf[5]))
	s.server.metrics.FramesOut.WithLabelValues(t.String()).Inc()
	s.server.logger.LogFrame(s.id, "->", t, buf[protocol.HeaderSize:])
	return nil
}

// Close закрывает сессию. Непустая причина отправляется клиенту кадром Disconnect.
func (s *Session) Close(reason string) {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		// Писатель может висеть на медленном клиенте, тогда Disconnect не отправляется
		if reason != "" && s.writeMu.TryLock() {
			if buf, err := protocol.Marshal(protocol.MsgDisconnect, protocol.Disconnect{Reason: reason}); err == nil {
				_ = s.conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
				_, _ = s.conn.Write(buf)
			}
			s.writeMu.Unlock()
		}
		close(s.done)
		_ = s.conn.Close()
	})
}
