// Package addrutil 提供地址解析工具
//
// 完整地址指以 /p2p/<PeerID> 结尾的多地址，用于保留节点、引导节点配置和拨号。
package addrutil

import (
	"errors"
	"fmt"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-netgate/pkg/types"
)

var (
	// ErrMissingPeerID 缺少 /p2p/<PeerID> 后缀
	ErrMissingPeerID = errors.New("missing /p2p/<PeerID> suffix")

	// ErrInvalidPeerID 地址中的 PeerID 无效
	ErrInvalidPeerID = errors.New("invalid peer ID in address")

	// ErrEmptyAddress 空地址
	ErrEmptyAddress = errors.New("empty address")

	// ErrPeerIDMismatch 地址中已有不同的 PeerID
	ErrPeerIDMismatch = errors.New("address already contains different peer ID")
)

// ParseFullAddr 拆分完整地址
//
//	/ip4/1.2.3.4/tcp/4001/p2p/Qm... → (Qm..., /ip4/1.2.3.4/tcp/4001)
//
// 只有 /p2p/<PeerID> 的地址返回 nil 拨号地址。
func ParseFullAddr(addr ma.Multiaddr) (types.PeerID, ma.Multiaddr, error) {
	if addr == nil || len(addr.Bytes()) == 0 {
		return types.EmptyPeerID, nil, ErrEmptyAddress
	}
	rest, last := ma.SplitLast(addr)
	if last == nil || last.Protocol().Code != ma.P_P2P {
		return types.EmptyPeerID, nil, fmt.Errorf("%w: %s", ErrMissingPeerID, addr)
	}
	id, err := types.ParsePeerID(last.Value())
	if err != nil {
		return types.EmptyPeerID, nil, fmt.Errorf("%w: %v", ErrInvalidPeerID, err)
	}
	return id, rest, nil
}

// ParseFullAddrString 解析字符串形式的完整地址
func ParseFullAddrString(s string) (types.PeerID, ma.Multiaddr, error) {
	if s == "" {
		return types.EmptyPeerID, nil, ErrEmptyAddress
	}
	addr, err := ma.NewMultiaddr(s)
	if err != nil {
		return types.EmptyPeerID, nil, err
	}
	return ParseFullAddr(addr)
}

// BuildFullAddr 在拨号地址后追加 /p2p/<PeerID>
//
// 地址已含相同 PeerID 时原样返回。
func BuildFullAddr(addr ma.Multiaddr, id types.PeerID) (ma.Multiaddr, error) {
	if id.IsEmpty() {
		return nil, ErrInvalidPeerID
	}
	if addr != nil {
		if _, last := ma.SplitLast(addr); last != nil && last.Protocol().Code == ma.P_P2P {
			if last.Value() != id.String() {
				return nil, ErrPeerIDMismatch
			}
			return addr, nil
		}
	}
	p2p, err := ma.NewComponent("p2p", id.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeerID, err)
	}
	if addr == nil {
		return p2p, nil
	}
	return addr.Encapsulate(p2p), nil
}

// StripPeerID 去掉末尾的 /p2p/<PeerID>
func StripPeerID(addr ma.Multiaddr) ma.Multiaddr {
	rest, last := ma.SplitLast(addr)
	if last == nil || last.Protocol().Code != ma.P_P2P {
		return addr
	}
	return rest
}

// PeerIDSet 从完整地址列表派生 PeerID 集合
//
// 任意一个地址缺少 PeerID 都返回错误，不做部分解析。
func PeerIDSet(addrs []ma.Multiaddr) (map[types.PeerID]struct{}, error) {
	set := make(map[types.PeerID]struct{}, len(addrs))
	for _, addr := range addrs {
		id, _, err := ParseFullAddr(addr)
		if err != nil {
			return nil, err
		}
		set[id] = struct{}{}
	}
	return set, nil
}
