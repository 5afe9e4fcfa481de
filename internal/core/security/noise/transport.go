package noise

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/flynn/noise"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/lib/crypto"
	"github.com/dep2p/go-netgate/pkg/lib/log"
	"github.com/dep2p/go-netgate/pkg/types"
)

var logger = log.Logger("core/security/noise")

// ProtocolID Noise 协议标识
const ProtocolID types.ProtocolID = "/noise"

// Transport Noise 安全传输
type Transport struct {
	identity  crypto.PrivateKey
	localPeer types.PeerID
	staticKey noise.DHKey
	payload   []byte
}

var _ pkgif.SecureTransport = (*Transport)(nil)

// New 创建 Noise 传输
//
// 每个 Transport 持有一把新生成的 X25519 静态密钥。
func New(identity crypto.PrivateKey) (*Transport, error) {
	if identity == nil {
		return nil, crypto.ErrNilPrivateKey
	}
	localPeer, err := crypto.PeerIDFromPrivateKey(identity)
	if err != nil {
		return nil, fmt.Errorf("derive local peer id: %w", err)
	}
	staticKey, err := noise.DH25519.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate static key: %w", err)
	}
	payload, err := buildPayload(identity, staticKey.Public)
	if err != nil {
		return nil, err
	}
	return &Transport{
		identity:  identity,
		localPeer: localPeer,
		staticKey: staticKey,
		payload:   payload,
	}, nil
}

// ID 返回协议标识
func (t *Transport) ID() types.ProtocolID { return ProtocolID }

// LocalPeer 返回本地节点 ID
func (t *Transport) LocalPeer() types.PeerID { return t.localPeer }

// SecureInbound 保护入站连接
func (t *Transport) SecureInbound(ctx context.Context, conn net.Conn, remotePeer types.PeerID) (pkgif.SecureConn, error) {
	return t.secure(ctx, conn, remotePeer, false)
}

// SecureOutbound 保护出站连接
func (t *Transport) SecureOutbound(ctx context.Context, conn net.Conn, remotePeer types.PeerID) (pkgif.SecureConn, error) {
	if remotePeer == "" {
		return nil, fmt.Errorf("secure outbound: %w", types.ErrEmptyPeerID)
	}
	return t.secure(ctx, conn, remotePeer, true)
}

func (t *Transport) secure(ctx context.Context, conn net.Conn, remotePeer types.PeerID, initiator bool) (pkgif.SecureConn, error) {
	if conn == nil {
		return nil, errors.New("noise: conn is nil")
	}

	label := log.TruncateID(string(remotePeer), 8)
	logger.Debug("Noise 握手开始", "remotePeer", label, "initiator", initiator)

	// ctx 取消时让阻塞的读写立即返回
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	res, err := t.runHandshake(conn, initiator, remotePeer)
	if !stop() {
		// AfterFunc 已触发，握手结果以 ctx 错误为准
		if err == nil {
			err = ctx.Err()
		} else {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
	}
	if err != nil {
		logger.Debug("Noise 握手失败", "remotePeer", label, "error", err)
		return nil, fmt.Errorf("noise handshake: %w", err)
	}

	logger.Debug("Noise 握手成功", "remotePeer", log.TruncateID(string(res.remotePeer), 8))
	return &secureConn{
		Conn:       conn,
		sendCS:     res.sendCS,
		recvCS:     res.recvCS,
		localPeer:  t.localPeer,
		remotePeer: res.remotePeer,
		remoteKey:  res.remoteKey,
	}, nil
}
