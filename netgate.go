package netgate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-netgate/config"
	"github.com/dep2p/go-netgate/internal/core/transport"
	"github.com/dep2p/go-netgate/internal/core/upgrader"
	"github.com/dep2p/go-netgate/internal/util/addrutil"
	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/lib/log"
	"github.com/dep2p/go-netgate/pkg/types"
)

var logger = log.Logger("netgate")

// startStopTimeout Fx 应用启停超时
const startStopTimeout = 15 * time.Second

// Transport 认证、校验网络、准入并复用的连接传输
//
// 所有 Dial 和 Listen 产生的连接共享同一个连接状态。
type Transport struct {
	app       *fx.App
	cfg       config.Initialized
	base      *transport.Composite
	upgrader  *upgrader.Upgrader
	state     pkgif.ConnectionState
	onFailure FailureHandler

	mu        sync.Mutex
	listeners map[*Listener]struct{}
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// BuildTransport 根据已初始化配置构建传输
//
// 返回的 ConnectionState 可用于观察当前连接计数。
func BuildTransport(cfg config.Initialized, opts ...Option) (*Transport, pkgif.ConnectionState, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("%w: nil configuration", ErrConfiguration)
	}
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	}

	var c components
	app := buildFxApp(cfg, o, &c)
	if err := app.Err(); err != nil {
		return nil, nil, fmt.Errorf("build transport: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startStopTimeout)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("start transport: %w", err)
	}

	t := &Transport{
		app:       app,
		cfg:       cfg,
		base:      c.base,
		upgrader:  c.upgrader,
		state:     c.state,
		onFailure: o.onFailure,
		listeners: make(map[*Listener]struct{}),
	}
	logger.Info("传输已创建",
		"peerID", t.PeerID().ShortString(),
		"network", cfg.Settings().NetworkName,
		"checksum", cfg.Checksum().ShortString())
	return t, t.state, nil
}

// PeerID 返回本节点 ID
func (t *Transport) PeerID() types.PeerID {
	return t.upgrader.LocalPeer()
}

// State 返回连接状态
func (t *Transport) State() pkgif.ConnectionState {
	return t.state
}

// Dial 拨号并升级连接
//
// addr 必须以 /p2p/<PeerID> 结尾，握手认证出的身份必须与之一致。
// 拨号和升级共享 TransportTimeout。
func (t *Transport) Dial(ctx context.Context, addr ma.Multiaddr) (pkgif.UpgradedConn, error) {
	if t.isClosed() {
		return nil, ErrTransportClosed
	}
	peer, dialAddr, err := addrutil.ParseFullAddr(addr)
	if err != nil {
		return nil, err
	}
	if peer == t.PeerID() {
		return nil, ErrDialSelf
	}
	if dialAddr == nil {
		return nil, fmt.Errorf("%w: %s", transport.ErrNoDialableAddr, addr)
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Settings().TransportTimeout)
	defer cancel()

	raw, err := t.base.Dial(ctx, dialAddr)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: dial stage: %w", ErrTransportTimeout, err)
		}
		return nil, err
	}
	return t.upgrader.Upgrade(ctx, raw, types.DirOutbound, peer)
}

// Listen 在 laddr 上监听，接受的连接在后台并发升级
func (t *Transport) Listen(laddr ma.Multiaddr) (*Listener, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}

	raw, err := t.base.Listen(laddr)
	if err != nil {
		return nil, err
	}
	l := newListener(t, raw)
	t.listeners[l] = struct{}{}
	go l.acceptLoop()

	logger.Info("开始监听", "addr", l.Multiaddr())
	return l, nil
}

// ListenConfigured 监听配置中的 TCP 地址，启用 WebSocket 时额外监听 TCPPort+1
func (t *Transport) ListenConfigured() ([]*Listener, error) {
	addrs, err := t.ListenAddrs()
	if err != nil {
		return nil, err
	}
	out := make([]*Listener, 0, len(addrs))
	for _, addr := range addrs {
		l, err := t.Listen(addr)
		if err != nil {
			for _, started := range out {
				_ = started.Close()
			}
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// ListenAddrs 返回配置对应的监听地址
func (t *Transport) ListenAddrs() ([]ma.Multiaddr, error) {
	s := t.cfg.Settings()
	tcpAddr, err := s.ListenAddr()
	if err != nil {
		return nil, err
	}
	addrs := []ma.Multiaddr{tcpAddr}
	if s.EnableWebSocket {
		wsAddr, err := s.WebSocketListenAddr()
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, wsAddr)
	}
	return addrs, nil
}

// Close 关闭全部监听器并停止传输
//
// 已建立的连接不受影响，由调用方各自关闭。
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		listeners := make([]*Listener, 0, len(t.listeners))
		for l := range t.listeners {
			listeners = append(listeners, l)
		}
		t.mu.Unlock()

		var errs error
		for _, l := range listeners {
			errs = multierr.Append(errs, l.Close())
		}

		ctx, cancel := context.WithTimeout(context.Background(), startStopTimeout)
		defer cancel()
		errs = multierr.Append(errs, t.app.Stop(ctx))
		t.closeErr = errs
		logger.Info("传输已关闭", "peerID", t.PeerID().ShortString())
	})
	return t.closeErr
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Transport) removeListener(l *Listener) {
	t.mu.Lock()
	delete(t.listeners, l)
	t.mu.Unlock()
}

// ============================================================================
//                              Listener
// ============================================================================

// acceptBacklog 已升级但尚未被 Accept 取走的连接数
const acceptBacklog = 16

// Listener 产出已升级连接的监听器
type Listener struct {
	t   *Transport
	raw pkgif.Listener

	incoming chan pkgif.UpgradedConn
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

func newListener(t *Transport, raw pkgif.Listener) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		t:        t,
		raw:      raw,
		incoming: make(chan pkgif.UpgradedConn, acceptBacklog),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (l *Listener) acceptLoop() {
	defer close(l.incoming)
	defer l.wg.Wait()

	for {
		conn, err := l.raw.Accept()
		if err != nil {
			if l.ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				logger.Warn("接受连接失败", "addr", l.raw.Multiaddr(), "error", err)
			}
			return
		}
		l.wg.Add(1)
		go l.upgrade(conn)
	}
}

// upgrade 升级单个入站连接，慢速对端不会阻塞其他连接
func (l *Listener) upgrade(conn net.Conn) {
	defer l.wg.Done()

	remote := conn.RemoteAddr()
	uc, err := l.t.upgrader.Upgrade(l.ctx, conn, types.DirInbound, types.EmptyPeerID)
	if err != nil {
		l.t.onFailure(FailedUpgrade{RemoteAddr: remote, Err: err})
		return
	}

	select {
	case l.incoming <- uc:
	case <-l.ctx.Done():
		_ = uc.Close()
	}
}

// Accept 返回下一个已升级的入站连接
//
// 监听器关闭后返回 net.ErrClosed。
func (l *Listener) Accept() (pkgif.UpgradedConn, error) {
	if l.ctx.Err() != nil {
		return nil, net.ErrClosed
	}
	select {
	case uc, ok := <-l.incoming:
		if !ok {
			return nil, net.ErrClosed
		}
		return uc, nil
	case <-l.ctx.Done():
		return nil, net.ErrClosed
	}
}

// Addr 返回底层监听地址
func (l *Listener) Addr() net.Addr {
	return l.raw.Addr()
}

// Multiaddr 返回可供对端拨号的完整地址（含 /p2p/<PeerID>）
func (l *Listener) Multiaddr() ma.Multiaddr {
	full, err := addrutil.BuildFullAddr(l.raw.Multiaddr(), l.t.PeerID())
	if err != nil {
		return l.raw.Multiaddr()
	}
	return full
}

// Close 停止监听，正在升级中的连接被取消
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.cancel()
		l.closeErr = l.raw.Close()
		l.t.removeListener(l)
		// 丢弃尚未被取走的连接
		go func() {
			for uc := range l.incoming {
				_ = uc.Close()
			}
		}()
	})
	return l.closeErr
}
