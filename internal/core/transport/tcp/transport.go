package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/lib/log"
)

var logger = log.Logger("core/transport/tcp")

// Config TCP 传输配置
type Config struct {
	// KeepAlive TCP 保活周期，0 使用系统默认
	KeepAlive time.Duration

	// PortReuse 监听套接字设置 SO_REUSEADDR/SO_REUSEPORT，
	// 出站连接优先从同族监听端口发出，对端看到的源端口即可回拨的端口
	PortReuse bool
}

// Transport TCP 传输
type Transport struct {
	config Config

	listenersMu sync.Mutex
	listeners   map[*Listener]struct{}

	closed atomic.Bool
}

var _ pkgif.Transport = (*Transport)(nil)

// NewTransport 创建 TCP 传输
func NewTransport(cfg Config) *Transport {
	return &Transport{
		config:    cfg,
		listeners: make(map[*Listener]struct{}),
	}
}

// isTCP 匹配 /ip4|ip6/.../tcp/<port>，且之后没有其它协议
func isTCP(addr ma.Multiaddr) bool {
	if addr == nil {
		return false
	}
	protos := addr.Protocols()
	if len(protos) != 2 {
		return false
	}
	return (protos[0].Code == ma.P_IP4 || protos[0].Code == ma.P_IP6) && protos[1].Code == ma.P_TCP
}

// CanDial 检查是否可以拨号
func (t *Transport) CanDial(addr ma.Multiaddr) bool {
	return !t.closed.Load() && isTCP(addr)
}

// Protocols 返回支持的协议
func (t *Transport) Protocols() []int {
	return []int{ma.P_TCP}
}

// Dial 建立出站 TCP 连接
func (t *Transport) Dial(ctx context.Context, raddr ma.Multiaddr) (net.Conn, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}
	if !isTCP(raddr) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddr, raddr)
	}
	network, host, err := manet.DialArgs(raddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedAddr, err)
	}

	if local := t.reuseLocalAddr(network); local != nil {
		dialer := &net.Dialer{KeepAlive: t.config.KeepAlive, LocalAddr: local, Control: reuseControl}
		conn, err := dialer.DialContext(ctx, network, host)
		if err == nil {
			tuneConn(conn)
			logger.Debug("TCP 拨号成功（端口复用）", "addr", raddr, "localAddr", conn.LocalAddr())
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("dial %s: %w", raddr, err)
		}
		// 四元组冲突或源地址不可达时退回普通拨号
		logger.Debug("端口复用拨号失败，改用随机端口", "addr", raddr, "error", err)
	}

	dialer := &net.Dialer{KeepAlive: t.config.KeepAlive}
	conn, err := dialer.DialContext(ctx, network, host)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", raddr, err)
	}
	tuneConn(conn)
	logger.Debug("TCP 拨号成功", "addr", raddr)
	return conn, nil
}

// reuseLocalAddr 返回可复用的监听地址，没有同族监听器时返回 nil
func (t *Transport) reuseLocalAddr(network string) *net.TCPAddr {
	if !t.config.PortReuse || !reuseportSupported {
		return nil
	}
	t.listenersMu.Lock()
	defer t.listenersMu.Unlock()
	for l := range t.listeners {
		la, ok := l.listener.Addr().(*net.TCPAddr)
		if !ok || !sameFamily(network, la.IP) {
			continue
		}
		if la.IP.IsUnspecified() {
			return &net.TCPAddr{Port: la.Port}
		}
		return &net.TCPAddr{IP: la.IP, Port: la.Port}
	}
	return nil
}

func sameFamily(network string, ip net.IP) bool {
	isV4 := ip.To4() != nil
	switch network {
	case "tcp4":
		return isV4
	case "tcp6":
		return !isV4
	default:
		return true
	}
}

// Listen 监听 TCP 地址
func (t *Transport) Listen(laddr ma.Multiaddr) (pkgif.Listener, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}
	if !isTCP(laddr) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddr, laddr)
	}
	network, host, err := manet.DialArgs(laddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedAddr, err)
	}

	lc := net.ListenConfig{KeepAlive: t.config.KeepAlive}
	if t.config.PortReuse {
		lc.Control = reuseControl
	}
	nl, err := lc.Listen(context.Background(), network, host)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", laddr, err)
	}
	actual, err := manet.FromNetAddr(nl.Addr())
	if err != nil {
		_ = nl.Close()
		return nil, fmt.Errorf("listen addr: %w", err)
	}

	l := &Listener{listener: nl, maddr: actual, owner: t}
	t.listenersMu.Lock()
	t.listeners[l] = struct{}{}
	t.listenersMu.Unlock()

	logger.Info("TCP 监听已启动", "addr", actual)
	return l, nil
}

// Close 关闭传输及其所有监听器
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.listenersMu.Lock()
	ls := make([]*Listener, 0, len(t.listeners))
	for l := range t.listeners {
		ls = append(ls, l)
	}
	t.listenersMu.Unlock()

	var err error
	for _, l := range ls {
		err = multierr.Append(err, l.Close())
	}
	return err
}

func (t *Transport) removeListener(l *Listener) {
	t.listenersMu.Lock()
	delete(t.listeners, l)
	t.listenersMu.Unlock()
}

// tuneConn 设置 NoDelay 和 KeepAlive
func tuneConn(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
		_ = tc.SetKeepAlive(true)
	}
}
