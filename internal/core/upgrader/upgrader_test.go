package upgrader

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-netgate/internal/core/admission"
	"github.com/dep2p/go-netgate/internal/core/checksum"
	"github.com/dep2p/go-netgate/internal/core/connmgr"
	"github.com/dep2p/go-netgate/internal/core/muxer"
	"github.com/dep2p/go-netgate/internal/core/muxer/yamux"
	"github.com/dep2p/go-netgate/internal/core/security/noise"
	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/lib/crypto"
	"github.com/dep2p/go-netgate/pkg/types"
)

// testPeer 一个测试节点：身份、连接状态和升级器
type testPeer struct {
	id       types.PeerID
	state    *connmgr.ConnectionState
	upgrader *Upgrader
}

type peerOpts struct {
	checksum     byte
	reservedOnly bool
	reserved     map[types.PeerID]struct{}
	limits       admission.Limits
	muxers       []pkgif.StreamMuxer
	timeout      time.Duration
}

func defaultOpts() peerOpts {
	return peerOpts{
		checksum: 1,
		limits:   admission.Limits{MaxPeersConnected: 10, MaxConnectionsPerPeer: 2},
	}
}

func sum(b byte) types.Checksum {
	var c types.Checksum
	for i := range c {
		c[i] = b
	}
	return c
}

func newTestPeer(t *testing.T, o peerOpts) *testPeer {
	t.Helper()
	priv, _, err := crypto.GenerateKeyPair(crypto.KeyTypeSecp256k1)
	require.NoError(t, err)
	id, err := crypto.PeerIDFromPrivateKey(priv)
	require.NoError(t, err)

	sec, err := noise.New(priv)
	require.NoError(t, err)

	muxers := o.muxers
	if muxers == nil {
		fallback, err := yamux.NewFactory(yamux.DefaultConfig())
		require.NoError(t, err)
		muxers = []pkgif.StreamMuxer{muxer.NewTransport(muxer.DefaultConfig()), fallback}
	}

	state := connmgr.NewConnectionState()
	u, err := New(priv, Config{
		SecurityTransports: []pkgif.SecureTransport{sec},
		StreamMuxers:       muxers,
		Checksum:           sum(o.checksum),
		Gate:               admission.New(o.reservedOnly, o.reserved, state, o.limits),
		Timeout:            o.timeout,
	})
	require.NoError(t, err)
	return &testPeer{id: id, state: state, upgrader: u}
}

func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()
	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	server := <-accepted
	require.NotNil(t, server)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

type result struct {
	conn pkgif.UpgradedConn
	err  error
}

// upgradePair 客户端出站升级，服务器端入站升级，返回双方结果
func upgradePair(t *testing.T, client, server *testPeer) (result, result) {
	t.Helper()
	cc, sc := tcpPair(t)
	return upgradeConns(t, client, server, cc, sc)
}

func upgradeConns(t *testing.T, client, server *testPeer, cc, sc net.Conn) (result, result) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverResult := make(chan result, 1)
	go func() {
		c, err := server.upgrader.Upgrade(ctx, sc, types.DirInbound, "")
		serverResult <- result{c, err}
	}()
	c, err := client.upgrader.Upgrade(ctx, cc, types.DirOutbound, server.id)
	cr := result{c, err}
	sr := <-serverResult
	t.Cleanup(func() {
		if cr.conn != nil {
			cr.conn.Close()
		}
		if sr.conn != nil {
			sr.conn.Close()
		}
	})
	return cr, sr
}

func TestNew_Validation(t *testing.T) {
	priv, _, err := crypto.GenerateKeyPair(crypto.KeyTypeEd25519)
	require.NoError(t, err)
	sec, err := noise.New(priv)
	require.NoError(t, err)
	gate := admission.New(false, nil, connmgr.NewConnectionState(), admission.Limits{MaxPeersConnected: 1, MaxConnectionsPerPeer: 1})
	mux := []pkgif.StreamMuxer{muxer.NewTransport(muxer.DefaultConfig())}
	secs := []pkgif.SecureTransport{sec}

	_, err = New(nil, Config{})
	assert.ErrorIs(t, err, ErrNilIdentity)
	_, err = New(priv, Config{StreamMuxers: mux, Gate: gate, Checksum: sum(1)})
	assert.ErrorIs(t, err, ErrNoSecurityTransport)
	_, err = New(priv, Config{SecurityTransports: secs, Gate: gate, Checksum: sum(1)})
	assert.ErrorIs(t, err, ErrNoStreamMuxer)
	_, err = New(priv, Config{SecurityTransports: secs, StreamMuxers: mux, Checksum: sum(1)})
	assert.ErrorIs(t, err, ErrNoGate)
	_, err = New(priv, Config{SecurityTransports: secs, StreamMuxers: mux, Gate: gate})
	assert.ErrorIs(t, err, checksum.ErrUninitialized)

	u, err := New(priv, Config{SecurityTransports: secs, StreamMuxers: mux, Gate: gate, Checksum: sum(1)})
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, u.timeout)
}

func TestUpgrade_Success(t *testing.T) {
	client := newTestPeer(t, defaultOpts())
	server := newTestPeer(t, defaultOpts())

	cr, sr := upgradePair(t, client, server)
	require.NoError(t, cr.err)
	require.NoError(t, sr.err)

	assert.Equal(t, client.id, cr.conn.LocalPeer())
	assert.Equal(t, server.id, cr.conn.RemotePeer())
	assert.Equal(t, client.id, sr.conn.RemotePeer())
	assert.Equal(t, types.DirOutbound, cr.conn.Direction())
	assert.Equal(t, types.DirInbound, sr.conn.Direction())
	assert.Equal(t, noise.ProtocolID, cr.conn.Security())
	assert.Equal(t, muxer.ProtocolID, cr.conn.Muxer())
	assert.Equal(t, muxer.ProtocolID, sr.conn.Muxer())
	assert.Equal(t, sum(1), cr.conn.Checksum())

	assert.Equal(t, uint32(1), client.state.Connections(server.id))
	assert.Equal(t, uint32(1), server.state.Connections(client.id))

	// 流可用
	go func() {
		s, err := sr.conn.AcceptStream()
		if err != nil {
			return
		}
		defer s.Close()
		_, _ = io.Copy(s, s)
	}()
	s, err := cr.conn.OpenStream(context.Background())
	require.NoError(t, err)
	_, err = s.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, s.CloseWrite())
	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	// 本端关闭立即归还，对端由会话关闭归还
	require.NoError(t, cr.conn.Close())
	require.NoError(t, cr.conn.Close())
	assert.Equal(t, 0, client.state.TotalConnections())
	assert.Eventually(t, func() bool {
		return server.state.TotalConnections() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestUpgrade_FallbackMuxer(t *testing.T) {
	fallback, err := yamux.NewFactory(yamux.DefaultConfig())
	require.NoError(t, err)

	o := defaultOpts()
	o.muxers = []pkgif.StreamMuxer{fallback}
	client := newTestPeer(t, o)
	server := newTestPeer(t, defaultOpts())

	cr, sr := upgradePair(t, client, server)
	require.NoError(t, cr.err)
	require.NoError(t, sr.err)
	assert.Equal(t, yamux.ProtocolID, cr.conn.Muxer())
	assert.Equal(t, yamux.ProtocolID, sr.conn.Muxer())
}

func TestUpgrade_ChecksumMismatch(t *testing.T) {
	client := newTestPeer(t, defaultOpts())
	o := defaultOpts()
	o.checksum = 2
	server := newTestPeer(t, o)

	cr, sr := upgradePair(t, client, server)
	assert.ErrorIs(t, cr.err, checksum.ErrNetworkMismatch)
	assert.ErrorIs(t, sr.err, checksum.ErrNetworkMismatch)

	var mismatch *checksum.MismatchError
	require.True(t, errors.As(cr.err, &mismatch))
	assert.Equal(t, sum(2), mismatch.Remote)

	// 校验和阶段失败不触碰连接状态
	assert.Equal(t, 0, client.state.TotalConnections())
	assert.Equal(t, 0, server.state.TotalConnections())
}

func TestUpgrade_ChecksumMismatchClosesConn(t *testing.T) {
	client := newTestPeer(t, defaultOpts())
	o := defaultOpts()
	o.checksum = 2
	server := newTestPeer(t, o)

	cc, sc := tcpPair(t)
	cr, sr := upgradeConns(t, client, server, cc, sc)
	require.ErrorIs(t, cr.err, checksum.ErrNetworkMismatch)
	require.ErrorIs(t, sr.err, checksum.ErrNetworkMismatch)

	buf := make([]byte, 1)
	_, err := cc.Read(buf)
	assert.ErrorIs(t, err, net.ErrClosed)
	_, err = sc.Read(buf)
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestUpgrade_ChecksumMismatchPeerSeesEOF(t *testing.T) {
	client := newTestPeer(t, defaultOpts())
	o := defaultOpts()
	o.checksum = 2
	server := newTestPeer(t, o)

	cc, sc := tcpPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 对端手动完成握手和校验和交换，之后观察连接是否被关闭
	peerErr := make(chan error, 1)
	go func() {
		secConn := secureInbound(ctx, t, server, sc)
		if secConn == nil {
			peerErr <- errors.New("secure inbound failed")
			return
		}
		if err := checksum.Verify(ctx, secConn, sum(2), false); !errors.Is(err, checksum.ErrNetworkMismatch) {
			peerErr <- err
			return
		}
		_ = sc.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, err := sc.Read(make([]byte, 1))
		peerErr <- err
	}()

	_, err := client.upgrader.Upgrade(ctx, cc, types.DirOutbound, server.id)
	require.ErrorIs(t, err, checksum.ErrNetworkMismatch)

	select {
	case err := <-peerErr:
		assert.True(t, errors.Is(err, io.EOF) || errors.Is(err, syscall.ECONNRESET),
			"期望连接关闭，实际: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("对端未观察到连接关闭")
	}
	assert.Equal(t, 0, client.state.TotalConnections())
}

// secureInbound 以服务器端身份完成安全协商和握手，失败返回 nil
func secureInbound(ctx context.Context, t *testing.T, p *testPeer, conn net.Conn) pkgif.SecureConn {
	st, err := p.upgrader.negotiateSecurity(conn, true)
	if err != nil {
		t.Logf("security negotiation: %v", err)
		return nil
	}
	secConn, err := st.SecureInbound(ctx, conn, "")
	if err != nil {
		t.Logf("secure inbound: %v", err)
		return nil
	}
	return secConn
}

func TestUpgrade_ReservedOnlyRejects(t *testing.T) {
	client := newTestPeer(t, defaultOpts())
	o := defaultOpts()
	o.reservedOnly = true
	o.reserved = map[types.PeerID]struct{}{"someone-else": {}}
	server := newTestPeer(t, o)

	cr, sr := upgradePair(t, client, server)
	assert.ErrorIs(t, sr.err, admission.ErrAdmissionRejected)
	assert.ErrorIs(t, sr.err, admission.ErrNotReserved)
	assert.Error(t, cr.err)

	assert.Equal(t, 0, server.state.TotalConnections())
	assert.Equal(t, 0, client.state.TotalConnections())
}

func TestUpgrade_PerPeerCapacity(t *testing.T) {
	o := defaultOpts()
	o.limits = admission.Limits{MaxPeersConnected: 10, MaxConnectionsPerPeer: 1}
	client := newTestPeer(t, defaultOpts())
	server := newTestPeer(t, o)

	cr, sr := upgradePair(t, client, server)
	require.NoError(t, cr.err)
	require.NoError(t, sr.err)

	cr2, sr2 := upgradePair(t, client, server)
	assert.ErrorIs(t, sr2.err, admission.ErrPerPeerCapacityExceeded)
	assert.Error(t, cr2.err)

	assert.Equal(t, uint32(1), server.state.Connections(client.id))
	// 客户端第二次准入成功后因会话失败而归还
	assert.Eventually(t, func() bool {
		return client.state.Connections(server.id) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestUpgrade_PeerIDMismatch(t *testing.T) {
	client := newTestPeer(t, defaultOpts())
	server := newTestPeer(t, defaultOpts())
	other := newTestPeer(t, defaultOpts())

	cc, sc := tcpPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go func() {
		_, _ = server.upgrader.Upgrade(ctx, sc, types.DirInbound, "")
	}()
	_, err := client.upgrader.Upgrade(ctx, cc, types.DirOutbound, other.id)
	assert.ErrorIs(t, err, ErrCryptoHandshake)
	assert.ErrorIs(t, err, noise.ErrPeerIDMismatch)
}

func TestUpgrade_Timeout(t *testing.T) {
	o := defaultOpts()
	o.timeout = 200 * time.Millisecond
	client := newTestPeer(t, o)
	server := newTestPeer(t, defaultOpts())

	// 对端从不响应
	cc, _ := tcpPair(t)
	start := time.Now()
	_, err := client.upgrader.Upgrade(context.Background(), cc, types.DirOutbound, server.id)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 0, client.state.TotalConnections())
}

func TestUpgrade_TimeoutAfterAdmissionReleases(t *testing.T) {
	o := defaultOpts()
	o.timeout = 400 * time.Millisecond
	client := newTestPeer(t, o)
	server := newTestPeer(t, defaultOpts())

	cc, sc := tcpPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 对端完成握手和校验和后不再响应多路复用协商
	verified := make(chan error, 1)
	go func() {
		secConn := secureInbound(ctx, t, server, sc)
		if secConn == nil {
			verified <- errors.New("secure inbound failed")
			return
		}
		verified <- checksum.Verify(ctx, secConn, sum(1), false)
		<-ctx.Done()
	}()

	_, err := client.upgrader.Upgrade(context.Background(), cc, types.DirOutbound, server.id)
	require.NoError(t, <-verified)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportTimeout)
	assert.Contains(t, err.Error(), "muxer stage")

	// 准入占用的配额已归还
	assert.Equal(t, 0, client.state.TotalConnections())
	assert.Equal(t, uint32(0), client.state.Connections(server.id))
	assert.Equal(t, 0, client.state.CappedPeers())
}

func TestUpgrade_ParentCanceled(t *testing.T) {
	client := newTestPeer(t, defaultOpts())
	server := newTestPeer(t, defaultOpts())

	cc, _ := tcpPair(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	_, err := client.upgrader.Upgrade(ctx, cc, types.DirOutbound, server.id)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTransportTimeout)
}

func TestUpgrade_OutboundRequiresPeer(t *testing.T) {
	client := newTestPeer(t, defaultOpts())
	cc, _ := tcpPair(t)
	_, err := client.upgrader.Upgrade(context.Background(), cc, types.DirOutbound, "")
	assert.ErrorIs(t, err, ErrNoPeerID)
}
