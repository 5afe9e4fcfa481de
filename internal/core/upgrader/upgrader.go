package upgrader

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dep2p/go-netgate/internal/core/checksum"
	"github.com/dep2p/go-netgate/internal/core/metrics"
	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/lib/crypto"
	"github.com/dep2p/go-netgate/pkg/lib/log"
	"github.com/dep2p/go-netgate/pkg/types"
)

var logger = log.Logger("core/upgrader")

var _ pkgif.Upgrader = (*Upgrader)(nil)

// Upgrader 连接升级器
type Upgrader struct {
	localPeer types.PeerID

	securityTransports []pkgif.SecureTransport
	streamMuxers       []pkgif.StreamMuxer

	checksum types.Checksum
	gate     pkgif.AdmissionGate
	timeout  time.Duration
	metrics  *metrics.Metrics
}

// New 创建连接升级器
func New(identity crypto.PrivateKey, cfg Config) (*Upgrader, error) {
	if identity == nil {
		return nil, ErrNilIdentity
	}
	if len(cfg.SecurityTransports) == 0 {
		return nil, ErrNoSecurityTransport
	}
	if len(cfg.StreamMuxers) == 0 {
		return nil, ErrNoStreamMuxer
	}
	if cfg.Gate == nil {
		return nil, ErrNoGate
	}
	if cfg.Checksum.IsZero() {
		return nil, checksum.ErrUninitialized
	}
	localPeer, err := crypto.PeerIDFromPrivateKey(identity)
	if err != nil {
		return nil, fmt.Errorf("derive local peer id: %w", err)
	}

	return &Upgrader{
		localPeer:          localPeer,
		securityTransports: cfg.SecurityTransports,
		streamMuxers:       cfg.StreamMuxers,
		checksum:           cfg.Checksum,
		gate:               cfg.Gate,
		timeout:            cfg.timeout(),
		metrics:            cfg.Metrics,
	}, nil
}

// LocalPeer 返回本地节点 ID
func (u *Upgrader) LocalPeer() types.PeerID { return u.localPeer }

// Upgrade 升级连接
//
// 任一步失败都会关闭 conn；准入之后的失败会归还配额。
func (u *Upgrader) Upgrade(
	ctx context.Context,
	conn net.Conn,
	dir types.Direction,
	remotePeer types.PeerID,
) (pkgif.UpgradedConn, error) {
	if dir == types.DirOutbound && remotePeer == "" {
		conn.Close()
		return nil, ErrNoPeerID
	}

	a := &attempt{
		id:    uuid.NewString()[:8],
		dir:   dir,
		start: time.Now(),
		conn:  conn,
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	// 截止时间只设置一次，由 ctx 驱动
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	a.stop = context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})

	isServer := dir == types.DirInbound
	logger.Debug("开始升级连接",
		"attempt", a.id,
		"direction", dir.String(),
		"remotePeer", remotePeer.ShortString(),
		"remoteAddr", conn.RemoteAddr())

	// 1. 安全协议协商 + 握手
	secTransport, err := u.negotiateSecurity(conn, isServer)
	if err != nil {
		return nil, u.fail(ctx, a, metrics.ResultSecurity, fmt.Errorf("%w: %w", ErrCryptoHandshake, err))
	}
	var secConn pkgif.SecureConn
	if isServer {
		secConn, err = secTransport.SecureInbound(ctx, conn, remotePeer)
	} else {
		secConn, err = secTransport.SecureOutbound(ctx, conn, remotePeer)
	}
	if err != nil {
		return nil, u.fail(ctx, a, metrics.ResultSecurity, fmt.Errorf("%w: %w", ErrCryptoHandshake, err))
	}
	peer := secConn.RemotePeer()
	logger.Debug("安全握手成功", "attempt", a.id, "remotePeer", peer.ShortString())

	// 2. 网络校验和
	if err := checksum.Verify(ctx, secConn, u.checksum, !isServer); err != nil {
		return nil, u.fail(ctx, a, metrics.ResultChecksum, err)
	}

	// 3. 准入控制
	admission, err := u.gate.Decide(peer, dir)
	if err != nil {
		return nil, u.fail(ctx, a, metrics.ResultAdmission, err)
	}
	a.admission = admission

	// 4. 多路复用
	muxer, err := u.negotiateMuxer(secConn, isServer)
	if err != nil {
		return nil, u.fail(ctx, a, metrics.ResultMuxer, fmt.Errorf("%w: %w", ErrMuxerSetupFailed, err))
	}

	// 会话建立前清除截止时间，之后的读写不再受升级超时约束
	if !a.stop() {
		return nil, u.fail(ctx, a, metrics.ResultMuxer, ctx.Err())
	}
	_ = conn.SetDeadline(time.Time{})

	muxed, err := muxer.NewConn(secConn, isServer)
	if err != nil {
		return nil, u.fail(ctx, a, metrics.ResultMuxer, fmt.Errorf("%w: %w", ErrMuxerSetupFailed, err))
	}

	uc := newUpgradedConn(muxed, secConn, dir, secTransport.ID(), muxer.ID(), u.checksum, admission)
	elapsed := time.Since(a.start)
	u.metrics.ObserveUpgrade(dir, metrics.ResultSuccess, elapsed)
	logger.Info("连接升级成功",
		"attempt", a.id,
		"direction", dir.String(),
		"remotePeer", peer.ShortString(),
		"security", secTransport.ID(),
		"muxer", muxer.ID(),
		"elapsed", elapsed)
	return uc, nil
}

// attempt 一次升级尝试的状态
type attempt struct {
	id        string
	dir       types.Direction
	start     time.Time
	conn      net.Conn
	stop      func() bool
	admission pkgif.Admission
}

// fail 清理并归类错误
//
// 截止时间触发导致的失败统一报告为 ErrTransportTimeout。
func (u *Upgrader) fail(ctx context.Context, a *attempt, result metrics.Result, err error) error {
	if a.stop != nil {
		a.stop()
	}
	closeErr := a.conn.Close()
	if a.admission != nil {
		a.admission.Release()
	}

	stage := result
	if isTimeout(ctx, err) {
		result = metrics.ResultTimeout
		err = fmt.Errorf("%w: %s stage: %w", ErrTransportTimeout, stage, err)
	} else if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	u.metrics.ObserveUpgrade(a.dir, result, time.Since(a.start))

	logger.Debug("连接升级失败",
		"attempt", a.id,
		"direction", a.dir.String(),
		"stage", string(stage),
		"error", multierr.Append(err, closeErr))
	return err
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		// 父 ctx 被取消时不算超时
		return !errors.Is(ctx.Err(), context.Canceled)
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout() && ctx.Err() == nil
}
