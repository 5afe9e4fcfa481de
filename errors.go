package netgate

import (
	"errors"

	"github.com/dep2p/go-netgate/config"
	"github.com/dep2p/go-netgate/internal/core/admission"
	"github.com/dep2p/go-netgate/internal/core/checksum"
	"github.com/dep2p/go-netgate/internal/core/upgrader"
	"github.com/dep2p/go-netgate/internal/util/addrutil"
)

// 公共错误定义，调用方用 errors.Is 判断
var (
	// ────────────────────────────────────────────────────────────────────────
	// 配置错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrConfiguration 配置无效
	ErrConfiguration = config.ErrConfiguration

	// ErrGenesisCommitment 无法计算创世承诺
	ErrGenesisCommitment = config.ErrGenesisCommitment

	// ErrMissingPeerID 地址缺少 /p2p/<PeerID>
	ErrMissingPeerID = addrutil.ErrMissingPeerID

	// ────────────────────────────────────────────────────────────────────────
	// 连接建立错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrCryptoHandshake 加密握手失败
	ErrCryptoHandshake = upgrader.ErrCryptoHandshake

	// ErrNetworkMismatch 对端属于不同网络
	ErrNetworkMismatch = checksum.ErrNetworkMismatch

	// ErrAdmissionRejected 准入被拒绝
	ErrAdmissionRejected = admission.ErrAdmissionRejected

	// ErrNotReserved 只接受保留节点模式下对端不是保留节点
	ErrNotReserved = admission.ErrNotReserved

	// ErrPeerCapacityExceeded 非保留节点数已达上限
	ErrPeerCapacityExceeded = admission.ErrPeerCapacityExceeded

	// ErrPerPeerCapacityExceeded 与该节点的连接数已达上限
	ErrPerPeerCapacityExceeded = admission.ErrPerPeerCapacityExceeded

	// ErrTransportTimeout 连接建立超时
	ErrTransportTimeout = upgrader.ErrTransportTimeout

	// ────────────────────────────────────────────────────────────────────────
	// 传输生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrTransportClosed 传输已关闭
	ErrTransportClosed = errors.New("netgate: transport closed")

	// ErrDialSelf 拨号目标是本节点
	ErrDialSelf = errors.New("netgate: dial to self")
)
