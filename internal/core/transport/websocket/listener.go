package websocket

import (
	"errors"
	"net"
	"net/http"
	"sync"

	ma "github.com/multiformats/go-multiaddr"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
)

// Listener WebSocket 监听器，由 HTTP 服务器完成升级
type Listener struct {
	nl     net.Listener
	maddr  ma.Multiaddr
	owner  *Transport
	server *http.Server

	incoming  chan *Conn
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var _ pkgif.Listener = (*Listener)(nil)

func newListener(nl net.Listener, maddr ma.Multiaddr, owner *Transport) *Listener {
	l := &Listener{
		nl:       nl,
		maddr:    maddr,
		owner:    owner,
		incoming: make(chan *Conn),
		closed:   make(chan struct{}),
	}
	l.server = &http.Server{
		Handler:           l,
		ReadHeaderTimeout: owner.config.HandshakeTimeout,
	}
	go func() {
		if err := l.server.Serve(nl); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("WebSocket 服务退出", "error", err)
		}
	}()
	return l
}

// ServeHTTP 升级 HTTP 请求并交给 Accept
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := l.owner.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("WebSocket 升级失败", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := NewConn(raw)
	select {
	case l.incoming <- c:
	case <-l.closed:
		_ = c.Close()
	}
}

// Accept 返回下一条已升级的原始连接
func (l *Listener) Accept() (net.Conn, error) {
	select {
	case c := <-l.incoming:
		return c, nil
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

// Addr 返回监听地址
func (l *Listener) Addr() net.Addr { return l.nl.Addr() }

// Multiaddr 返回实际监听的多地址
func (l *Listener) Multiaddr() ma.Multiaddr { return l.maddr }

// Close 停止监听，已交付的连接不受影响
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.owner.removeListener(l)
		l.closeErr = l.server.Close()
	})
	return l.closeErr
}
