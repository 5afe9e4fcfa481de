// Package connmgr 维护连接状态
//
// ConnectionState 记录每个节点的连接数以及计入上限的非保留节点数，
// 由准入控制和连接关闭路径共享。所有读写都在同一把互斥锁内完成，
// 因此“检查上限 + 计数加一”是原子的，并发的连接尝试不会突破上限。
//
//	state := connmgr.NewConnectionState()
//	if err := state.TryConnect(peer, false, 50, 3); err != nil {
//	    // 拒绝
//	}
//	defer state.Disconnected(peer)
package connmgr
