package connmgr

import (
	"sync"

	"github.com/dep2p/go-netgate/pkg/lib/log"
	"github.com/dep2p/go-netgate/pkg/types"
)

var logger = log.Logger("core/connmgr")

type peerEntry struct {
	count    uint32
	reserved bool
}

// ConnectionState 连接计数表
type ConnectionState struct {
	mu sync.Mutex

	peers map[types.PeerID]*peerEntry

	// capped 计入 max_peers_connected 的节点数
	capped int

	// total 所有节点的连接数之和
	total int
}

// NewConnectionState 创建空的连接状态
func NewConnectionState() *ConnectionState {
	return &ConnectionState{
		peers: make(map[types.PeerID]*peerEntry),
	}
}

// TryConnect 检查上限并登记一条新连接
//
// reserved 为 true 时总是登记成功，且该节点不计入 maxPeers。
// 否则新节点在非保留节点数达到 maxPeers 时被拒绝，
// 已有节点在连接数达到 maxPerPeer 时被拒绝。
func (s *ConnectionState) TryConnect(peer types.PeerID, reserved bool, maxPeers, maxPerPeer uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.peers[peer]
	if reserved {
		if !ok {
			e = &peerEntry{reserved: true}
			s.peers[peer] = e
		}
		e.count++
		s.total++
		return nil
	}

	if !ok {
		if s.capped >= int(maxPeers) {
			return ErrPeerCapacityExceeded
		}
		if maxPerPeer == 0 {
			return ErrPerPeerCapacityExceeded
		}
		s.peers[peer] = &peerEntry{count: 1}
		s.capped++
		s.total++
		return nil
	}

	if e.count >= maxPerPeer {
		return ErrPerPeerCapacityExceeded
	}
	e.count++
	s.total++
	return nil
}

// Disconnected 登记一条连接关闭
//
// 计数不会低于零；对没有连接的节点调用只记录警告。
func (s *ConnectionState) Disconnected(peer types.PeerID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.peers[peer]
	if !ok || e.count == 0 {
		logger.Warn("断开未登记的连接", "peer", log.TruncateID(peer.String(), 8))
		return
	}

	e.count--
	s.total--
	if e.count > 0 {
		return
	}
	delete(s.peers, peer)
	if !e.reserved {
		s.capped--
	}
}

// Connections 返回与 peer 的连接数
func (s *ConnectionState) Connections(peer types.PeerID) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.peers[peer]; ok {
		return e.count
	}
	return 0
}

// ConnectedPeers 返回有连接的节点数
func (s *ConnectionState) ConnectedPeers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// CappedPeers 返回计入上限的非保留节点数
func (s *ConnectionState) CappedPeers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capped
}

// TotalConnections 返回连接总数
func (s *ConnectionState) TotalConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Snapshot 返回 peer → 连接数 的副本
func (s *ConnectionState) Snapshot() map[types.PeerID]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[types.PeerID]uint32, len(s.peers))
	for id, e := range s.peers {
		out[id] = e.count
	}
	return out
}
