package netgate

import (
	"context"
	"io"
	"testing"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-netgate/config"
	"github.com/dep2p/go-netgate/genesis"
	"github.com/dep2p/go-netgate/internal/util/addrutil"
	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/lib/crypto"
	"github.com/dep2p/go-netgate/pkg/types"
)

var loopback = ma.StringCast("/ip4/127.0.0.1/tcp/0")

func otherGenesis() *genesis.Genesis {
	g := genesis.Default()
	g.ChainConfigHash = "0x" + g.CoinsRoot
	return g
}

func newConfig(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	cfg := config.Default("devnet")
	cfg.TransportTimeout = 5 * time.Second
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

func peerIDOf(t *testing.T, cfg *config.Config) types.PeerID {
	t.Helper()
	id, err := crypto.PeerIDFromPrivateKey(cfg.Keypair)
	require.NoError(t, err)
	return id
}

func build(t *testing.T, cfg *config.Config, g genesis.Commitment, opts ...Option) (*Transport, pkgif.ConnectionState) {
	t.Helper()
	ic, err := cfg.Init(g)
	require.NoError(t, err)
	tr, state, err := BuildTransport(ic, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr, state
}

func failures() (chan FailedUpgrade, Option) {
	ch := make(chan FailedUpgrade, 4)
	return ch, WithFailureHandler(func(f FailedUpgrade) {
		select {
		case ch <- f:
		default:
		}
	})
}

func acceptAsync(l *Listener) <-chan pkgif.UpgradedConn {
	ch := make(chan pkgif.UpgradedConn, 1)
	go func() {
		uc, err := l.Accept()
		if err == nil {
			ch <- uc
		}
		close(ch)
	}()
	return ch
}

// 相同创世配置的两个节点建立连接并打开可用的流
func TestDialSameGenesis(t *testing.T) {
	x, xState := build(t, newConfig(t, nil), genesis.Default())
	y, yState := build(t, newConfig(t, nil), genesis.Default())

	l, err := y.Listen(loopback)
	require.NoError(t, err)
	accepted := acceptAsync(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, err := x.Dial(ctx, l.Multiaddr())
	require.NoError(t, err)
	defer out.Close()

	in := <-accepted
	require.NotNil(t, in)
	defer in.Close()

	assert.Equal(t, y.PeerID(), out.RemotePeer())
	assert.Equal(t, x.PeerID(), in.RemotePeer())
	assert.Equal(t, out.Checksum(), in.Checksum())
	assert.Equal(t, types.DirOutbound, out.Direction())
	assert.Equal(t, types.DirInbound, in.Direction())

	go func() {
		s, err := in.AcceptStream()
		if err != nil {
			return
		}
		_, _ = io.Copy(s, s)
		_ = s.Close()
	}()

	s, err := out.OpenStream(ctx)
	require.NoError(t, err)
	_, err = s.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(s, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
	_ = s.Close()

	assert.Equal(t, uint32(1), xState.Connections(y.PeerID()))
	assert.Equal(t, uint32(1), yState.Connections(x.PeerID()))

	require.NoError(t, out.Close())
	assert.Eventually(t, func() bool {
		return xState.TotalConnections() == 0 && yState.TotalConnections() == 0
	}, 5*time.Second, 20*time.Millisecond)
}

// 不同创世配置的节点在校验和阶段被拒绝，连接计数不变
func TestDialDifferentGenesisRejected(t *testing.T) {
	fails, onFail := failures()
	x, xState := build(t, newConfig(t, nil), genesis.Default())
	y, yState := build(t, newConfig(t, nil), otherGenesis(), onFail)

	l, err := y.Listen(loopback)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = x.Dial(ctx, l.Multiaddr())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetworkMismatch)

	select {
	case f := <-fails:
		assert.ErrorIs(t, f.Err, ErrNetworkMismatch)
	case <-time.After(5 * time.Second):
		t.Fatal("入站失败未上报")
	}

	assert.Equal(t, 0, xState.TotalConnections())
	assert.Equal(t, 0, yState.TotalConnections())
}

// 只接受保留节点模式下非保留节点被拒绝，保留节点被接受
func TestReservedOnlyMode(t *testing.T) {
	reservedCfg := newConfig(t, nil)
	reservedID := peerIDOf(t, reservedCfg)
	reservedAddr, err := addrutil.BuildFullAddr(ma.StringCast("/ip4/127.0.0.1/tcp/1"), reservedID)
	require.NoError(t, err)

	fails, onFail := failures()
	server, serverState := build(t, newConfig(t, func(c *config.Config) {
		c.ReservedNodes = []ma.Multiaddr{reservedAddr}
		c.ReservedNodesOnlyMode = true
		c.MaxPeersConnected = 1
		c.MaxConnectionsPerPeer = 1
	}), genesis.Default(), onFail)

	l, err := server.Listen(loopback)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stranger, _ := build(t, newConfig(t, nil), genesis.Default())
	_, err = stranger.Dial(ctx, l.Multiaddr())
	require.Error(t, err)

	select {
	case f := <-fails:
		assert.ErrorIs(t, f.Err, ErrAdmissionRejected)
		assert.ErrorIs(t, f.Err, ErrNotReserved)
	case <-time.After(5 * time.Second):
		t.Fatal("准入拒绝未上报")
	}
	assert.Equal(t, 0, serverState.TotalConnections())

	reserved, _ := build(t, reservedCfg, genesis.Default())
	accepted := acceptAsync(l)
	out, err := reserved.Dial(ctx, l.Multiaddr())
	require.NoError(t, err)
	defer out.Close()

	in := <-accepted
	require.NotNil(t, in)
	defer in.Close()
	assert.Equal(t, reservedID, in.RemotePeer())

	// 计数上限不约束保留节点
	accepted = acceptAsync(l)
	out2, err := reserved.Dial(ctx, l.Multiaddr())
	require.NoError(t, err)
	defer out2.Close()
	if in2 := <-accepted; in2 != nil {
		defer in2.Close()
	}
}

// 计数模式下容量已满时非保留节点被拒绝，保留节点仍被接受
func TestReservedBypassesSaturatedCapacity(t *testing.T) {
	reservedCfg := newConfig(t, nil)
	reservedID := peerIDOf(t, reservedCfg)
	reservedAddr, err := addrutil.BuildFullAddr(ma.StringCast("/ip4/127.0.0.1/tcp/1"), reservedID)
	require.NoError(t, err)

	fails, onFail := failures()
	server, serverState := build(t, newConfig(t, func(c *config.Config) {
		c.ReservedNodes = []ma.Multiaddr{reservedAddr}
		c.MaxPeersConnected = 1
		c.MaxConnectionsPerPeer = 1
	}), genesis.Default(), onFail)

	l, err := server.Listen(loopback)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first, _ := build(t, newConfig(t, nil), genesis.Default())
	accepted := acceptAsync(l)
	out, err := first.Dial(ctx, l.Multiaddr())
	require.NoError(t, err)
	defer out.Close()
	if in := <-accepted; in != nil {
		defer in.Close()
	}
	require.Equal(t, 1, serverState.CappedPeers())

	second, _ := build(t, newConfig(t, nil), genesis.Default())
	_, err = second.Dial(ctx, l.Multiaddr())
	require.Error(t, err)
	select {
	case f := <-fails:
		assert.ErrorIs(t, f.Err, ErrPeerCapacityExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("容量拒绝未上报")
	}

	reserved, _ := build(t, reservedCfg, genesis.Default())
	accepted = acceptAsync(l)
	rout, err := reserved.Dial(ctx, l.Multiaddr())
	require.NoError(t, err)
	defer rout.Close()
	if in := <-accepted; in != nil {
		defer in.Close()
	}
	assert.Eventually(t, func() bool {
		return serverState.Connections(reservedID) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, serverState.CappedPeers())
	assert.Equal(t, 2, serverState.ConnectedPeers())
}

func TestDialRequiresPeerID(t *testing.T) {
	x, _ := build(t, newConfig(t, nil), genesis.Default())
	_, err := x.Dial(context.Background(), ma.StringCast("/ip4/127.0.0.1/tcp/30333"))
	assert.ErrorIs(t, err, ErrMissingPeerID)
}

func TestDialSelf(t *testing.T) {
	x, _ := build(t, newConfig(t, nil), genesis.Default())
	addr, err := addrutil.BuildFullAddr(ma.StringCast("/ip4/127.0.0.1/tcp/30333"), x.PeerID())
	require.NoError(t, err)
	_, err = x.Dial(context.Background(), addr)
	assert.ErrorIs(t, err, ErrDialSelf)
}

func TestDialAfterClose(t *testing.T) {
	x, _ := build(t, newConfig(t, nil), genesis.Default())
	require.NoError(t, x.Close())
	require.NoError(t, x.Close())

	_, err := x.Listen(loopback)
	assert.ErrorIs(t, err, ErrTransportClosed)
}

func TestListenerCloseUnblocksAccept(t *testing.T) {
	x, _ := build(t, newConfig(t, nil), genesis.Default())
	l, err := x.Listen(loopback)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := l.Accept()
		done <- err
	}()
	require.NoError(t, l.Close())
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Accept 未返回")
	}
}

func TestListenConfigured(t *testing.T) {
	x, _ := build(t, newConfig(t, func(c *config.Config) {
		c.Address = []byte{127, 0, 0, 1}
		c.EnableWebSocket = true
	}), genesis.Default())

	addrs, err := x.ListenAddrs()
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	assert.True(t, addrutil.IsWebSocket(addrs[1]))

	listeners, err := x.ListenConfigured()
	require.NoError(t, err)
	require.Len(t, listeners, 2)

	y, _ := build(t, newConfig(t, func(c *config.Config) {
		c.EnableWebSocket = true
	}), genesis.Default())

	accepted := acceptAsync(listeners[1])
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, err := y.Dial(ctx, listeners[1].Multiaddr())
	require.NoError(t, err)
	defer out.Close()
	in := <-accepted
	require.NotNil(t, in)
	defer in.Close()
	assert.Equal(t, y.PeerID(), in.RemotePeer())
}

func TestMetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	x, _ := build(t, newConfig(t, func(c *config.Config) { c.Metrics = true }), genesis.Default(), WithRegisterer(reg))
	y, _ := build(t, newConfig(t, nil), genesis.Default())

	l, err := y.Listen(loopback)
	require.NoError(t, err)
	accepted := acceptAsync(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, err := x.Dial(ctx, l.Multiaddr())
	require.NoError(t, err)
	defer out.Close()
	if in := <-accepted; in != nil {
		defer in.Close()
	}

	n, err := testutil.GatherAndCount(reg, "netgate_upgrades_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBuildTransportRejectsBadOptions(t *testing.T) {
	ic := config.DefaultInitialized("devnet")
	_, _, err := BuildTransport(ic, WithRegisterer(nil))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, _, err = BuildTransport(nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}
