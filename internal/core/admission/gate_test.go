package admission

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-netgate/config"
	"github.com/dep2p/go-netgate/genesis"
	"github.com/dep2p/go-netgate/internal/core/connmgr"
	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/types"
)

func peer(t *testing.T, n int) types.PeerID {
	t.Helper()
	id, err := types.PeerIDFromBytes([]byte(fmt.Sprintf("peer-%d", n)))
	require.NoError(t, err)
	return id
}

func set(ids ...types.PeerID) map[types.PeerID]struct{} {
	m := make(map[types.PeerID]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func TestReservedOnly(t *testing.T) {
	r := peer(t, 1)
	g := NewReservedOnly(set(r))

	for _, dir := range []types.Direction{types.DirInbound, types.DirOutbound} {
		a, err := g.Decide(r, dir)
		require.NoError(t, err)
		a.Release()
		a.Release()

		_, err = g.Decide(peer(t, 2), dir)
		assert.ErrorIs(t, err, ErrAdmissionRejected)
		assert.ErrorIs(t, err, ErrNotReserved)
	}
}

func TestReservedOnlyNeverTouchesState(t *testing.T) {
	state := connmgr.NewConnectionState()
	r := peer(t, 1)
	g := New(true, set(r), state, Limits{MaxPeersConnected: 1, MaxConnectionsPerPeer: 1})

	for i := 0; i < 10; i++ {
		a, err := g.Decide(r, types.DirInbound)
		require.NoError(t, err)
		defer a.Release()
		_, err = g.Decide(peer(t, 2), types.DirInbound)
		require.Error(t, err)
	}
	assert.Empty(t, state.Snapshot())
	assert.Equal(t, 0, state.TotalConnections())
}

func TestReservedOnlyCopiesSet(t *testing.T) {
	r := peer(t, 1)
	reserved := set(r)
	g := NewReservedOnly(reserved)
	delete(reserved, r)

	_, err := g.Decide(r, types.DirOutbound)
	assert.NoError(t, err)
}

func TestTrackerPerPeerCap(t *testing.T) {
	state := connmgr.NewConnectionState()
	g := NewTracker(nil, state, Limits{MaxPeersConnected: 50, MaxConnectionsPerPeer: 3})
	p := peer(t, 1)

	var held []pkgif.Admission
	for i := 0; i < 3; i++ {
		a, err := g.Decide(p, types.DirInbound)
		require.NoError(t, err)
		held = append(held, a)
	}
	_, err := g.Decide(p, types.DirInbound)
	assert.ErrorIs(t, err, ErrAdmissionRejected)
	assert.ErrorIs(t, err, ErrPerPeerCapacityExceeded)

	// 重复 Release 只归还一次
	held[0].Release()
	held[0].Release()
	assert.Equal(t, uint32(2), state.Connections(p))

	a, err := g.Decide(p, types.DirOutbound)
	require.NoError(t, err)
	held = append(held[1:], a)
	for _, h := range held {
		h.Release()
	}
	assert.Equal(t, uint32(0), state.Connections(p))
}

func TestTrackerDistinctCap(t *testing.T) {
	state := connmgr.NewConnectionState()
	g := NewTracker(nil, state, Limits{MaxPeersConnected: 2, MaxConnectionsPerPeer: 3})

	_, err := g.Decide(peer(t, 1), types.DirInbound)
	require.NoError(t, err)
	_, err = g.Decide(peer(t, 2), types.DirInbound)
	require.NoError(t, err)
	_, err = g.Decide(peer(t, 3), types.DirInbound)
	assert.ErrorIs(t, err, ErrAdmissionRejected)
	assert.ErrorIs(t, err, ErrPeerCapacityExceeded)
}

func TestTrackerReservedExemptFromDistinctCap(t *testing.T) {
	state := connmgr.NewConnectionState()
	r := peer(t, 100)
	g := NewTracker(set(r), state, Limits{MaxPeersConnected: 1, MaxConnectionsPerPeer: 1})

	_, err := g.Decide(peer(t, 1), types.DirInbound)
	require.NoError(t, err)

	// 保留节点超过两个上限仍被接受
	for i := 0; i < 3; i++ {
		_, err = g.Decide(r, types.DirInbound)
		require.NoError(t, err)
	}
	assert.Equal(t, uint32(3), state.Connections(r))
	assert.Equal(t, 1, state.CappedPeers())
}

func TestTrackerConcurrentAdmissions(t *testing.T) {
	const attempts, limit = 50, 3
	state := connmgr.NewConnectionState()
	g := NewTracker(nil, state, Limits{MaxPeersConnected: 50, MaxConnectionsPerPeer: limit})
	p := peer(t, 1)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Decide(p, types.DirInbound); err == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(limit), admitted.Load())
}

func TestFromConfig(t *testing.T) {
	r := peer(t, 7)
	cfg := config.Default("devnet")
	cfg.ReservedNodes = []ma.Multiaddr{ma.StringCast("/ip4/10.0.0.1/tcp/1/p2p/" + r.String())}
	cfg.MaxPeersConnected = 1

	ic, err := cfg.Init(genesis.Default())
	require.NoError(t, err)
	g := FromConfig(ic, connmgr.NewConnectionState())
	assert.IsType(t, &Tracker{}, g)

	cfg.ReservedNodesOnlyMode = true
	ic, err = cfg.Init(genesis.Default())
	require.NoError(t, err)
	g = FromConfig(ic, connmgr.NewConnectionState())
	assert.IsType(t, &ReservedOnly{}, g)

	_, err = g.Decide(r, types.DirInbound)
	assert.NoError(t, err)
}
