package tcp

import "errors"

var (
	// ErrTransportClosed 传输已关闭
	ErrTransportClosed = errors.New("tcp: transport closed")

	// ErrUnsupportedAddr 不是 TCP 地址
	ErrUnsupportedAddr = errors.New("tcp: unsupported multiaddr")
)
