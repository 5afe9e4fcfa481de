package admission

import (
	"errors"

	"github.com/dep2p/go-netgate/internal/core/connmgr"
)

var (
	// ErrAdmissionRejected 准入被拒绝，所有拒绝都包装此错误
	ErrAdmissionRejected = errors.New("admission rejected")

	// ErrNotReserved 只接受保留节点模式下对端不是保留节点
	ErrNotReserved = errors.New("peer is not reserved")

	// ErrPeerCapacityExceeded 非保留节点数已达上限
	ErrPeerCapacityExceeded = connmgr.ErrPeerCapacityExceeded

	// ErrPerPeerCapacityExceeded 与该节点的连接数已达上限
	ErrPerPeerCapacityExceeded = connmgr.ErrPerPeerCapacityExceeded
)
