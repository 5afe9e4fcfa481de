package upgrader

import "errors"

var (
	// ErrNilIdentity 身份为空
	ErrNilIdentity = errors.New("upgrader: identity is nil")

	// ErrNoPeerID 出站连接缺少 PeerID
	ErrNoPeerID = errors.New("upgrader: outbound connection requires remote peer ID")

	// ErrNoSecurityTransport 没有安全传输
	ErrNoSecurityTransport = errors.New("upgrader: no security transport configured")

	// ErrNoStreamMuxer 没有流复用器
	ErrNoStreamMuxer = errors.New("upgrader: no stream muxer configured")

	// ErrNoGate 没有准入控制
	ErrNoGate = errors.New("upgrader: no admission gate configured")

	// ErrCryptoHandshake 安全协商或握手失败
	ErrCryptoHandshake = errors.New("crypto handshake failed")

	// ErrMuxerSetupFailed 多路复用器协商或建立失败
	ErrMuxerSetupFailed = errors.New("upgrader: muxer setup failed")

	// ErrTransportTimeout 连接建立超时
	ErrTransportTimeout = errors.New("transport timeout")
)
