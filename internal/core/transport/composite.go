package transport

import (
	"context"
	"fmt"
	"net"
	"sort"

	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/multierr"

	"github.com/dep2p/go-netgate/internal/core/transport/dns"
	"github.com/dep2p/go-netgate/internal/core/transport/tcp"
	"github.com/dep2p/go-netgate/internal/core/transport/websocket"
	"github.com/dep2p/go-netgate/internal/util/addrutil"
	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/lib/log"
)

var logger = log.Logger("core/transport")

// Config 组合传输配置
type Config struct {
	// EnableWebSocket 启用 WebSocket 监听（拨号始终支持）
	EnableWebSocket bool

	// AllowPrivateAddresses 为 false 时不拨号私有地址
	AllowPrivateAddresses bool

	TCP       tcp.Config
	WebSocket websocket.Config
}

// Composite TCP + WebSocket + DNS 组合传输
type Composite struct {
	config   Config
	tcp      *tcp.Transport
	ws       *websocket.Transport
	resolver *dns.Resolver
}

var _ pkgif.Transport = (*Composite)(nil)

// NewComposite 创建组合传输，resolver 为 nil 时使用系统解析器
func NewComposite(cfg Config, resolver *dns.Resolver) *Composite {
	if resolver == nil {
		resolver = dns.NewResolver(nil)
	}
	return &Composite{
		config:   cfg,
		tcp:      tcp.NewTransport(cfg.TCP),
		ws:       websocket.NewTransport(cfg.WebSocket),
		resolver: resolver,
	}
}

// Protocols 返回支持的协议
func (c *Composite) Protocols() []int {
	return append(c.tcp.Protocols(), c.ws.Protocols()...)
}

// CanDial 检查是否可以拨号（DNS 地址视为可拨号）
func (c *Composite) CanDial(addr ma.Multiaddr) bool {
	if dns.NeedsResolve(addr) {
		return true
	}
	return c.tcp.CanDial(addr) || c.ws.CanDial(addr)
}

// Resolve 解析并排序候选地址：TCP 在前，WebSocket 在后
func (c *Composite) Resolve(ctx context.Context, addr ma.Multiaddr) ([]ma.Multiaddr, error) {
	resolved, err := c.resolver.Resolve(ctx, addr)
	if err != nil {
		return nil, err
	}
	resolved = addrutil.FilterPrivate(resolved, c.config.AllowPrivateAddresses)

	out := resolved[:0:0]
	for _, a := range resolved {
		if c.tcp.CanDial(a) || c.ws.CanDial(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return !addrutil.IsWebSocket(out[i]) && addrutil.IsWebSocket(out[j])
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDialableAddr, addr)
	}
	return out, nil
}

// Dial 依次尝试候选地址，返回第一条成功的原始连接
func (c *Composite) Dial(ctx context.Context, raddr ma.Multiaddr) (net.Conn, error) {
	addrs, err := c.Resolve(ctx, raddr)
	if err != nil {
		return nil, err
	}

	var errs error
	for _, a := range addrs {
		if err := ctx.Err(); err != nil {
			return nil, multierr.Append(errs, err)
		}
		conn, err := c.transportFor(a).Dial(ctx, a)
		if err == nil {
			return conn, nil
		}
		logger.Debug("拨号失败，尝试下一个地址", "addr", a, "error", err)
		errs = multierr.Append(errs, err)
	}
	return nil, errs
}

// Listen 按地址类型监听
func (c *Composite) Listen(laddr ma.Multiaddr) (pkgif.Listener, error) {
	switch {
	case c.ws.CanDial(laddr):
		if !c.config.EnableWebSocket {
			return nil, fmt.Errorf("%w: websocket disabled: %s", ErrNoTransport, laddr)
		}
		return c.ws.Listen(laddr)
	case c.tcp.CanDial(laddr):
		return c.tcp.Listen(laddr)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoTransport, laddr)
}

// Close 关闭所有子传输
func (c *Composite) Close() error {
	return multierr.Combine(c.tcp.Close(), c.ws.Close())
}

func (c *Composite) transportFor(addr ma.Multiaddr) pkgif.Transport {
	if c.ws.CanDial(addr) {
		return c.ws
	}
	return c.tcp
}
