package interfaces

import "github.com/dep2p/go-netgate/pkg/types"

// AdmissionGate 准入控制
//
// Decide 只做内存判断，不做 I/O，耗时有界。
// 准入成功时返回的 Admission 必须在连接关闭时 Release。
type AdmissionGate interface {
	Decide(peer types.PeerID, dir types.Direction) (Admission, error)
}

// Admission 一次准入决定
type Admission interface {
	// Release 归还连接配额，可重复调用，只生效一次
	Release()
}

// ConnectionState 连接计数的只读视图
//
// 计数由准入控制在准入时增加、在 Admission.Release 时减少。
type ConnectionState interface {
	// Connections 返回与 peer 的当前连接数
	Connections(peer types.PeerID) uint32

	// ConnectedPeers 返回有连接的节点数（含保留节点）
	ConnectedPeers() int

	// CappedPeers 返回计入 max_peers_connected 的节点数（不含保留节点）
	CappedPeers() int

	// TotalConnections 返回连接总数
	TotalConnections() int

	// Snapshot 返回 peer → 连接数 的副本
	Snapshot() map[types.PeerID]uint32
}
