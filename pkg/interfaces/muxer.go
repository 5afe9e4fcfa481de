package interfaces

import (
	"context"
	"net"
	"time"
)

// StreamMuxer 流多路复用器
type StreamMuxer interface {
	// NewConn 在安全连接上建立多路复用会话
	NewConn(conn net.Conn, isServer bool) (MuxedConn, error)

	// ID 返回多路复用协议标识
	ID() string
}

// MuxedConn 多路复用连接
type MuxedConn interface {
	// OpenStream 打开新流
	OpenStream(ctx context.Context) (MuxedStream, error)

	// AcceptStream 接受对端打开的流
	AcceptStream() (MuxedStream, error)

	// Close 关闭会话及底层连接
	Close() error

	// IsClosed 检查会话是否已关闭
	IsClosed() bool

	// CloseChan 会话关闭（本端或对端）时关闭
	CloseChan() <-chan struct{}
}

// MuxedStream 多路复用流
type MuxedStream interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)

	// Close 正常关闭
	Close() error

	// CloseWrite 关闭写端
	CloseWrite() error

	// CloseRead 关闭读端
	CloseRead() error

	// Reset 异常关闭
	Reset() error

	SetDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}
