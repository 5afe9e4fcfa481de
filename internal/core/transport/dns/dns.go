// Package dns 解析 /dns、/dns4、/dns6、/dnsaddr 多地址
package dns

import (
	"context"
	"errors"
	"fmt"

	ma "github.com/multiformats/go-multiaddr"
	madns "github.com/multiformats/go-multiaddr-dns"

	"github.com/dep2p/go-netgate/pkg/lib/log"
)

var logger = log.Logger("core/transport/dns")

// ErrNoAddresses 解析结果为空
var ErrNoAddresses = errors.New("dns: no addresses resolved")

// Resolver 多地址解析器
type Resolver struct {
	resolver *madns.Resolver
}

// NewResolver 创建解析器，resolver 为 nil 时使用系统解析器
func NewResolver(resolver *madns.Resolver) *Resolver {
	if resolver == nil {
		resolver = madns.DefaultResolver
	}
	return &Resolver{resolver: resolver}
}

// NeedsResolve 地址是否含 DNS 组件
func NeedsResolve(addr ma.Multiaddr) bool {
	return addr != nil && madns.Matches(addr)
}

// Resolve 解析地址，不含 DNS 组件的地址原样返回
func (r *Resolver) Resolve(ctx context.Context, addr ma.Multiaddr) ([]ma.Multiaddr, error) {
	if !NeedsResolve(addr) {
		return []ma.Multiaddr{addr}, nil
	}
	out, err := r.resolver.Resolve(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAddresses, addr)
	}
	logger.Debug("DNS 解析完成", "addr", addr, "count", len(out))
	return out, nil
}
