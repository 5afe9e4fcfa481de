package websocket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"
	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/lib/log"
)

var logger = log.Logger("core/transport/websocket")

var (
	// ErrTransportClosed 传输已关闭
	ErrTransportClosed = errors.New("websocket: transport closed")

	// ErrUnsupportedAddr 不是 WebSocket 地址
	ErrUnsupportedAddr = errors.New("websocket: unsupported multiaddr")
)

// wsComponent /ws 后缀
var wsComponent = ma.StringCast("/ws")

// Config WebSocket 传输配置
type Config struct {
	// HandshakeTimeout HTTP 升级超时
	HandshakeTimeout time.Duration

	// ReadBufferSize / WriteBufferSize gorilla 缓冲区大小
	ReadBufferSize  int
	WriteBufferSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   32 * 1024,
		WriteBufferSize:  32 * 1024,
	}
}

// Transport WebSocket 传输
type Transport struct {
	config   Config
	dialer   *ws.Dialer
	upgrader ws.Upgrader

	listenersMu sync.Mutex
	listeners   map[*Listener]struct{}

	closed atomic.Bool
}

var _ pkgif.Transport = (*Transport)(nil)

// NewTransport 创建 WebSocket 传输
func NewTransport(cfg Config) *Transport {
	return &Transport{
		config: cfg,
		dialer: &ws.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
			ReadBufferSize:   cfg.ReadBufferSize,
			WriteBufferSize:  cfg.WriteBufferSize,
		},
		upgrader: ws.Upgrader{
			HandshakeTimeout: cfg.HandshakeTimeout,
			ReadBufferSize:   cfg.ReadBufferSize,
			WriteBufferSize:  cfg.WriteBufferSize,
			// 节点之间没有浏览器 Origin 语义
			CheckOrigin: func(*http.Request) bool { return true },
		},
		listeners: make(map[*Listener]struct{}),
	}
}

// splitWS 拆出 /ws 之前的 TCP 地址
func splitWS(addr ma.Multiaddr) (ma.Multiaddr, bool) {
	if addr == nil {
		return nil, false
	}
	head, last := ma.SplitLast(addr)
	if last == nil || last.Protocol().Code != ma.P_WS || head == nil {
		return nil, false
	}
	protos := head.Protocols()
	if len(protos) != 2 || protos[1].Code != ma.P_TCP {
		return nil, false
	}
	if protos[0].Code != ma.P_IP4 && protos[0].Code != ma.P_IP6 {
		return nil, false
	}
	return head, true
}

// CanDial 检查是否可以拨号
func (t *Transport) CanDial(addr ma.Multiaddr) bool {
	_, ok := splitWS(addr)
	return ok && !t.closed.Load()
}

// Protocols 返回支持的协议
func (t *Transport) Protocols() []int {
	return []int{ma.P_WS}
}

// Dial 建立出站 WebSocket 连接
func (t *Transport) Dial(ctx context.Context, raddr ma.Multiaddr) (net.Conn, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}
	tcpAddr, ok := splitWS(raddr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddr, raddr)
	}
	_, host, err := manet.DialArgs(tcpAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedAddr, err)
	}

	raw, resp, err := t.dialer.DialContext(ctx, "ws://"+host+"/", nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", raddr, err)
	}
	logger.Debug("WebSocket 拨号成功", "addr", raddr)
	return NewConn(raw), nil
}

// Listen 监听 WebSocket 地址
func (t *Transport) Listen(laddr ma.Multiaddr) (pkgif.Listener, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}
	tcpAddr, ok := splitWS(laddr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddr, laddr)
	}
	network, host, err := manet.DialArgs(tcpAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedAddr, err)
	}
	nl, err := net.Listen(network, host)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", laddr, err)
	}
	actual, err := manet.FromNetAddr(nl.Addr())
	if err != nil {
		_ = nl.Close()
		return nil, fmt.Errorf("listen addr: %w", err)
	}

	l := newListener(nl, actual.Encapsulate(wsComponent), t)
	t.listenersMu.Lock()
	t.listeners[l] = struct{}{}
	t.listenersMu.Unlock()

	logger.Info("WebSocket 监听已启动", "addr", l.Multiaddr())
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
