package upgrader

import (
	"fmt"
	"io"

	mss "github.com/multiformats/go-multistream"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
)

// negotiate 服务器端从提议中选择，客户端按优先级提议
//
// 截止时间由 Upgrade 统一管理，这里不做任何设置。
func negotiate(rwc io.ReadWriteCloser, protocols []string, isServer bool) (string, error) {
	if isServer {
		muxer := mss.NewMultistreamMuxer[string]()
		for _, p := range protocols {
			muxer.AddHandler(p, nil)
		}
		proto, _, err := muxer.Negotiate(rwc)
		return proto, err
	}
	return mss.SelectOneOf(protocols, rwc)
}

// negotiateSecurity 协商安全协议
func (u *Upgrader) negotiateSecurity(rwc io.ReadWriteCloser, isServer bool) (pkgif.SecureTransport, error) {
	protocols := make([]string, len(u.securityTransports))
	for i, st := range u.securityTransports {
		protocols[i] = string(st.ID())
	}
	selected, err := negotiate(rwc, protocols, isServer)
	if err != nil {
		return nil, fmt.Errorf("security negotiation: %w", err)
	}
	for _, st := range u.securityTransports {
		if string(st.ID()) == selected {
			return st, nil
		}
	}
	return nil, fmt.Errorf("negotiated protocol %s not found", selected)
}

// negotiateMuxer 协商多路复用器
func (u *Upgrader) negotiateMuxer(rwc io.ReadWriteCloser, isServer bool) (pkgif.StreamMuxer, error) {
	protocols := make([]string, len(u.streamMuxers))
	for i, sm := range u.streamMuxers {
		protocols[i] = sm.ID()
	}
	selected, err := negotiate(rwc, protocols, isServer)
	if err != nil {
		return nil, fmt.Errorf("muxer negotiation: %w", err)
	}
	for _, sm := range u.streamMuxers {
		if sm.ID() == selected {
			return sm, nil
		}
	}
	return nil, fmt.Errorf("negotiated muxer %s not found", selected)
}
