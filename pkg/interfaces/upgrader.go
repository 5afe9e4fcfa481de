package interfaces

import (
	"context"
	"net"

	"github.com/dep2p/go-netgate/pkg/types"
)

// Upgrader 连接升级器
//
// 升级过程：
//  1. 安全协议协商 + 握手
//  2. 网络校验和交换
//  3. 准入控制
//  4. 多路复用协商 + 会话建立
//
// 全程受同一个超时约束，任一步失败都会关闭原始连接。
type Upgrader interface {
	// Upgrade 升级连接
	//
	// 出站连接 remotePeer 必须提供，入站连接可为空。
	Upgrade(ctx context.Context, conn net.Conn, dir types.Direction,
		remotePeer types.PeerID) (UpgradedConn, error)
}

// UpgradedConn 升级完成的连接
type UpgradedConn interface {
	MuxedConn

	// LocalPeer 返回本地节点 ID
	LocalPeer() types.PeerID

	// RemotePeer 返回远端节点 ID
	RemotePeer() types.PeerID

	// Direction 返回连接方向
	Direction() types.Direction

	// Security 返回协商的安全协议
	Security() types.ProtocolID

	// Muxer 返回协商的多路复用器
	Muxer() string

	// Checksum 返回双方确认一致的网络校验和
	Checksum() types.Checksum

	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}
