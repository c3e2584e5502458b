package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

var ErrSlowConsumer = errors.New("send buffer full")

// Conn is one websocket client. Writes go through a buffered queue drained
// by a single writer goroutine.
type Conn struct {
	id     uuid.UUID
	conn   *websocket.Conn
	send   chan any
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func NewConn(ctx context.Context, conn *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(ctx)
	return &Conn{
		id:     uuid.New(),
		conn:   conn,
		send:   make(chan any, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Conn) ID() uuid.UUID {
	return c.id
}

func (c *Conn) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Send queues msg without blocking.
func (c *Conn) Send(msg any) error {
	select {
	case <-c.ctx.Done():
		return errors.New("connection closed")
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// WritePump writes queued messages and pings until the connection closes.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// ReadPump consumes client frames so control messages are processed. The UI
// sends nothing meaningful on the socket. It returns when the peer goes away.
func (c *Conn) ReadPump() {
	defer c.Close()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}
