package admission

import (
	"fmt"
	"maps"
	"sync"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/lib/log"
	"github.com/dep2p/go-netgate/pkg/types"
)

var logger = log.Logger("core/admission")

// StateTracker 连接计数的写入端
type StateTracker interface {
	TryConnect(peer types.PeerID, reserved bool, maxPeers, maxPerPeer uint32) error
	Disconnected(peer types.PeerID)
}

// Limits 非保留节点的连接上限
type Limits struct {
	MaxPeersConnected     uint32
	MaxConnectionsPerPeer uint32
}

// New 按模式选择准入策略
func New(reservedOnly bool, reserved map[types.PeerID]struct{}, state StateTracker, limits Limits) pkgif.AdmissionGate {
	if reservedOnly {
		return NewReservedOnly(reserved)
	}
	return NewTracker(reserved, state, limits)
}

// ============================================================================
//                              ReservedOnly
// ============================================================================

// ReservedOnly 只接受保留节点
type ReservedOnly struct {
	reserved map[types.PeerID]struct{}
}

var _ pkgif.AdmissionGate = (*ReservedOnly)(nil)

// NewReservedOnly 创建只接受保留节点的策略
func NewReservedOnly(reserved map[types.PeerID]struct{}) *ReservedOnly {
	return &ReservedOnly{reserved: maps.Clone(reserved)}
}

// Decide 对端在保留集合中则接受
func (g *ReservedOnly) Decide(peer types.PeerID, dir types.Direction) (pkgif.Admission, error) {
	if _, ok := g.reserved[peer]; ok {
		return noRelease{}, nil
	}
	logger.Debug("拒绝非保留节点",
		"peer", log.TruncateID(peer.String(), 8),
		"direction", dir.String())
	return nil, fmt.Errorf("%w: %w", ErrAdmissionRejected, ErrNotReserved)
}

type noRelease struct{}

func (noRelease) Release() {}

// ============================================================================
//                              Tracker
// ============================================================================

// Tracker 按连接数上限准入
type Tracker struct {
	reserved map[types.PeerID]struct{}
	state    StateTracker
	limits   Limits
}

var _ pkgif.AdmissionGate = (*Tracker)(nil)

// NewTracker 创建按上限准入的策略
func NewTracker(reserved map[types.PeerID]struct{}, state StateTracker, limits Limits) *Tracker {
	return &Tracker{
		reserved: maps.Clone(reserved),
		state:    state,
		limits:   limits,
	}
}

// Decide 检查上限并占用一个连接配额
func (g *Tracker) Decide(peer types.PeerID, dir types.Direction) (pkgif.Admission, error) {
	_, isReserved := g.reserved[peer]
	if err := g.state.TryConnect(peer, isReserved,
		g.limits.MaxPeersConnected, g.limits.MaxConnectionsPerPeer); err != nil {
		logger.Debug("连接数已达上限",
			"peer", log.TruncateID(peer.String(), 8),
			"direction", dir.String(),
			"reason", err)
		return nil, fmt.Errorf("%w: %w", ErrAdmissionRejected, err)
	}
	return &slot{state: g.state, peer: peer}, nil
}

// slot 一个已占用的连接配额
type slot struct {
	once  sync.Once
	state StateTracker
	peer  types.PeerID
}

func (s *slot) Release() {
	s.once.Do(func() {
		s.state.Disconnected(s.peer)
	})
}
