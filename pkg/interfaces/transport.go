package interfaces

import (
	"context"
	"io"
	"net"

	ma "github.com/multiformats/go-multiaddr"
)

// Transport 底层传输，只负责建立原始字节流
type Transport interface {
	// Dial 拨号到指定地址（不含 /p2p 部分）
	Dial(ctx context.Context, raddr ma.Multiaddr) (net.Conn, error)

	// CanDial 检查是否支持该地址
	CanDial(addr ma.Multiaddr) bool

	// Listen 在指定地址监听
	Listen(laddr ma.Multiaddr) (Listener, error)

	// Protocols 返回支持的多地址协议编号
	Protocols() []int

	io.Closer
}

// Listener 原始连接监听器
type Listener interface {
	Accept() (net.Conn, error)
	Close() error
	Addr() net.Addr

	// Multiaddr 返回实际监听的多地址
	Multiaddr() ma.Multiaddr
}
