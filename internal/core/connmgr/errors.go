package connmgr

import "errors"

var (
	// ErrPeerCapacityExceeded 非保留节点数已达上限
	ErrPeerCapacityExceeded = errors.New("connmgr: max peers connected reached")

	// ErrPerPeerCapacityExceeded 与该节点的连接数已达上限
	ErrPerPeerCapacityExceeded = errors.New("connmgr: max connections per peer reached")
)
