package interfaces

import (
	"context"
	"net"

	"github.com/dep2p/go-netgate/pkg/types"
)

// SecureTransport 安全传输接口
//
// 握手完成后双方身份均已认证，remotePeer 非空时必须与认证出的身份一致。
type SecureTransport interface {
	// SecureInbound 保护入站连接，remotePeer 可为空
	SecureInbound(ctx context.Context, conn net.Conn, remotePeer types.PeerID) (SecureConn, error)

	// SecureOutbound 保护出站连接
	SecureOutbound(ctx context.Context, conn net.Conn, remotePeer types.PeerID) (SecureConn, error)

	// ID 返回安全协议标识
	ID() types.ProtocolID
}

// SecureConn 安全连接
type SecureConn interface {
	net.Conn

	// LocalPeer 返回本地节点 ID
	LocalPeer() types.PeerID

	// RemotePeer 返回握手认证出的远端节点 ID
	RemotePeer() types.PeerID

	// RemotePublicKey 返回远端序列化公钥
	RemotePublicKey() []byte

	// ConnState 返回连接状态
	ConnState() SecureConnState
}

// SecureConnState 安全连接状态
type SecureConnState struct {
	Protocol        types.ProtocolID
	LocalPeer       types.PeerID
	RemotePeer      types.PeerID
	RemotePublicKey []byte
}
