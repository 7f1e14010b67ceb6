package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mpapenbr/carclash-server/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendQueueSize  = 256
)

// Session is a websocket connection bound to a Client.
// Writes are done by a single goroutine reading from the send queue.
type Session struct {
	Client
	conn    *websocket.Conn
	send    chan []byte
	quit    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	l       *log.Logger
}

func newSession(c Client, conn *websocket.Conn, limiter *rate.Limiter, l *log.Logger) *Session {
	return &Session{
		Client:  c,
		conn:    conn,
		send:    make(chan []byte, sendQueueSize),
		quit:    make(chan struct{}),
		limiter: limiter,
		l:       l.With(log.String("session", c.ID)),
	}
}

func (s *Session) ClientID() string {
	return s.ID
}

// Enqueue queues data for sending. Returns false if the queue is full or the
// session is closing.
func (s *Session) Enqueue(data []byte) bool {
	select {
	case <-s.quit:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// Close flushes the queued messages and closes the connection
func (s *Session) Close() {
	s.once.Do(func() { close(s.quit) })
}

func (s *Session) write(messageType int, data []byte) error {
	//nolint:errcheck // the following write reports the problem
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case data := <-s.send:
			if err := s.write(websocket.TextMessage, data); err != nil {
				s.l.Debug("write failed", log.ErrorField(err))
				return
			}
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.quit:
			for {
				select {
				case data := <-s.send:
					if err := s.write(websocket.TextMessage, data); err != nil {
						return
					}
				default:
					//nolint:errcheck // closing anyway
					s.write(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

// readPump calls handle for every inbound message until the connection fails
func (s *Session) readPump(handle func(data []byte)) {
	s.conn.SetReadLimit(maxMessageSize)
	//nolint:errcheck // a failing deadline surfaces on read
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.l.Debug("unexpected close", log.ErrorField(err))
			}
			return
		}
		handle(data)
	}
}
