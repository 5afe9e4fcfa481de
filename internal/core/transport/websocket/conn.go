package websocket

import (
	"io"
	"net"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

// GracefulCloseTimeout 发送关闭帧的最长等待时间
var GracefulCloseTimeout = 100 * time.Millisecond

// Conn 把 gorilla/websocket 连接适配为 net.Conn
type Conn struct {
	*ws.Conn
	reader io.Reader

	writeMu   sync.Mutex
	closeOnce sync.Once
}

var _ net.Conn = (*Conn)(nil)

// NewConn 包装 websocket 连接
func NewConn(raw *ws.Conn) *Conn {
	return &Conn{Conn: raw}
}

func (c *Conn) Read(b []byte) (int, error) {
	if c.reader == nil {
		if err := c.nextReader(); err != nil {
			return 0, err
		}
	}
	for {
		n, err := c.reader.Read(b)
		if err != io.EOF {
			return n, err
		}
		c.reader = nil
		if n > 0 {
			return n, nil
		}
		if err := c.nextReader(); err != nil {
			return 0, err
		}
	}
}

func (c *Conn) nextReader() error {
	t, r, err := c.Conn.NextReader()
	if err != nil {
		if ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseNoStatusReceived) {
			return io.EOF
		}
		return err
	}
	if t == ws.CloseMessage {
		return io.EOF
	}
	c.reader = r
	return nil
}

// Write 一次写入作为一个二进制帧
func (c *Conn) Write(b []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.Conn.WriteMessage(ws.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close 发送关闭帧后关闭底层连接，仅第一次调用返回错误
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.Conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(GracefulCloseTimeout))
		err = c.Conn.Close()
	})
	return err
}

func (c *Conn) SetDeadline(t time.Time) error {
	if err := c.Conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.Conn.SetWriteDeadline(t)
}
