package tcp

import (
	"net"
	"sync/atomic"

	ma "github.com/multiformats/go-multiaddr"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
)

// Listener TCP 监听器
type Listener struct {
	listener net.Listener
	maddr    ma.Multiaddr
	owner    *Transport
	closed   atomic.Bool
}

var _ pkgif.Listener = (*Listener)(nil)

// Accept 接受原始连接
func (l *Listener) Accept() (net.Conn, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}
	tuneConn(conn)
	return conn, nil
}

// Addr 返回监听地址
func (l *Listener) Addr() net.Addr { return l.listener.Addr() }

// Multiaddr 返回实际监听的多地址（端口 0 已被替换）
func (l *Listener) Multiaddr() ma.Multiaddr { return l.maddr }

// Close 关闭监听器
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	if l.owner != nil {
		l.owner.removeListener(l)
	}
	return l.listener.Close()
}
