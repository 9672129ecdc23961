package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the deadline for a single outbound write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead. pingPeriod must be shorter so a ping is always in
	// flight before the deadline hits.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxFrameSize bounds inbound frames. The largest legitimate frame is
	// a send_message envelope around a 1000-character body, so 4 KiB gives
	// ample headroom for JSON overhead and multi-byte runes.
	maxFrameSize = 4096
)

// Client wraps a websocket connection with a buffered outbound queue. Writes
// go through the queue so exactly one goroutine touches the socket's write
// side; slow consumers fill the queue and get evicted rather than blocking a
// broadcast.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	closing sync.Once
}

func newClient(conn *websocket.Conn, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// trySend queues a frame without blocking. Returns false when the buffer is
// full, which the registry treats as grounds for eviction.
func (c *Client) trySend(frame []byte) (ok bool) {
	defer func() {
		// send may already be closed by a concurrent eviction.
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// close shuts the outbound queue, which unblocks writePump and lets it close
// the underlying socket. Safe to call more than once.
func (c *Client) close() {
	c.closing.Do(func() {
		close(c.send)
	})
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with periodic pings. It owns the socket's write side and closes the
// socket when the queue is closed or a write fails. done is closed on exit
// so callers can wait for queued frames to reach the wire.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames off the socket and hands each one to handle until
// the connection errors or handle returns false. The read deadline is pushed
// forward on every pong so idle but healthy connections survive.
func (c *Client) readPump(handle func(frame []byte) bool) {
	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if !handle(frame) {
			return
		}
	}
}
