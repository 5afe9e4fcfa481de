package addrutil

import (
	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
)

// IsWebSocket 检查地址是否以 /ws 结尾
func IsWebSocket(addr ma.Multiaddr) bool {
	stripped := StripPeerID(addr)
	if stripped == nil {
		return false
	}
	_, last := ma.SplitLast(stripped)
	return last != nil && last.Protocol().Code == ma.P_WS
}

// IsDNS 检查地址是否以 /dns、/dns4、/dns6 开头
func IsDNS(addr ma.Multiaddr) bool {
	first, _ := ma.SplitFirst(addr)
	if first == nil {
		return false
	}
	switch first.Protocol().Code {
	case ma.P_DNS, ma.P_DNS4, ma.P_DNS6:
		return true
	}
	return false
}

// IsPrivateAddr 检查地址是否为私网或回环地址
func IsPrivateAddr(addr ma.Multiaddr) bool {
	return manet.IsPrivateAddr(addr) || manet.IsIPLoopback(addr)
}

// FilterPrivate 在 allowPrivate 为 false 时去掉私网地址
func FilterPrivate(addrs []ma.Multiaddr, allowPrivate bool) []ma.Multiaddr {
	if allowPrivate {
		return addrs
	}
	out := make([]ma.Multiaddr, 0, len(addrs))
	for _, a := range addrs {
		if !IsPrivateAddr(a) {
			out = append(out, a)
		}
	}
	return out
}
