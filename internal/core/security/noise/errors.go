package noise

import "errors"

var (
	// ErrInvalidHandshake 握手失败
	ErrInvalidHandshake = errors.New("noise: invalid handshake")

	// ErrInvalidSignature payload 签名无法验证
	ErrInvalidSignature = errors.New("noise: remote static key not bound to identity key")

	// ErrPeerIDMismatch 认证出的 PeerID 与期望不符
	ErrPeerIDMismatch = errors.New("noise: peer ID mismatch")

	// ErrInvalidPayload payload 无法解析
	ErrInvalidPayload = errors.New("noise: invalid handshake payload")
)
