package service

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

// clientConn represents a client connection with priority queues for messaging.
type clientConn struct {
	conn        *websocket.Conn
	highQueue   chan *game.ServerMessage // For shutdown and chunk lifecycle events
	normalQueue chan *game.ServerMessage // For normal events

	closeOnce sync.Once
	done      chan struct{}
}

func newClientConn(conn *websocket.Conn) *clientConn {
	return &clientConn{
		conn:        conn,
		highQueue:   make(chan *game.ServerMessage, sendQueueSize),
		normalQueue: make(chan *game.ServerMessage, sendQueueSize),
		done:        make(chan struct{}),
	}
}

// send enqueues a message into the appropriate queue. If block is true, it
// blocks until the message is enqueued; otherwise it drops on overflow.
func (c *clientConn) send(msg *game.ServerMessage, block bool) {
	q := c.normalQueue
	if msg.WorldEvent != nil {
		switch msg.WorldEvent.Type {
		case game.WorldEventServerShutdown, game.WorldEventChunkGenerated, game.WorldEventChunkRemoved:
			q = c.highQueue
		}
	}
	if block {
		select {
		case q <- msg:
		case <-c.done:
		}
	} else {
		select {
		case q <- msg:
		case <-c.done:
		default:
		}
	}
}

// writePump drains the queues into the websocket, high priority first.
func (c *clientConn) writePump() {
	defer c.conn.Close()
	for {
		var msg *game.ServerMessage
		select {
		case <-c.done:
			return
		case msg = <-c.highQueue:
		default:
			select {
			case <-c.done:
				return
			case msg = <-c.highQueue:
			case msg = <-c.normalQueue:
			}
		}
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// close stops the write pump. Safe to call multiple times.
func (c *clientConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
