package noise

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/flynn/noise"

	"github.com/dep2p/go-netgate/pkg/lib/crypto"
	"github.com/dep2p/go-netgate/pkg/types"
)

// maxFrameSize 单帧最大长度（2 字节长度前缀）
const maxFrameSize = 1<<16 - 1

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// handshakeResult 握手结果
type handshakeResult struct {
	sendCS     *noise.CipherState
	recvCS     *noise.CipherState
	remotePeer types.PeerID
	remoteKey  []byte
}

// runHandshake 执行 Noise XX 握手并认证远端身份
//
// expected 非空时，认证出的 PeerID 必须与之相同。
func (t *Transport) runHandshake(conn net.Conn, initiator bool, expected types.PeerID) (*handshakeResult, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeXX,
		Initiator:     initiator,
		StaticKeypair: t.staticKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create handshake state: %w", err)
	}

	var (
		sendCS, recvCS *noise.CipherState
		remotePayload  []byte
	)
	if initiator {
		sendCS, recvCS, remotePayload, err = initiatorHandshake(conn, hs, t.payload)
	} else {
		sendCS, recvCS, remotePayload, err = responderHandshake(conn, hs, t.payload)
	}
	if err != nil {
		return nil, err
	}

	remotePeer, remoteKey, err := verifyRemotePayload(remotePayload, hs.PeerStatic())
	if err != nil {
		return nil, err
	}
	if expected != "" && remotePeer != expected {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrPeerIDMismatch, expected, remotePeer)
	}

	return &handshakeResult{
		sendCS:     sendCS,
		recvCS:     recvCS,
		remotePeer: remotePeer,
		remoteKey:  remoteKey,
	}, nil
}

// initiatorHandshake 发起方：写 e，读 e/ee/s/es，写 s/se
func initiatorHandshake(conn net.Conn, hs *noise.HandshakeState, payload []byte) (send, recv *noise.CipherState, remote []byte, err error) {
	msg, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 1: %w", err)
	}
	if err := writeFrame(conn, msg); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 1: %w", err)
	}

	msg, err = readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 2: %w", err)
	}
	remote, _, _, err = hs.ReadMessage(nil, msg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: read message 2: %v", ErrInvalidHandshake, err)
	}

	msg, cs1, cs2, err := hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 3: %w", err)
	}
	if err := writeFrame(conn, msg); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 3: %w", err)
	}
	return cs1, cs2, remote, nil
}

// responderHandshake 响应方：读 e，写 e/ee/s/es，读 s/se
func responderHandshake(conn net.Conn, hs *noise.HandshakeState, payload []byte) (send, recv *noise.CipherState, remote []byte, err error) {
	msg, err := readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 1: %w", err)
	}
	if _, _, _, err := hs.ReadMessage(nil, msg); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: read message 1: %v", ErrInvalidHandshake, err)
	}

	msg, _, _, err = hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 2: %w", err)
	}
	if err := writeFrame(conn, msg); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 2: %w", err)
	}

	msg, err = readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 3: %w", err)
	}
	remote, cs1, cs2, err := hs.ReadMessage(nil, msg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: read message 3: %v", ErrInvalidHandshake, err)
	}
	// 响应方方向与发起方相反
	return cs2, cs1, remote, nil
}

// buildPayload 生成绑定静态公钥的身份 payload
func buildPayload(identity crypto.PrivateKey, staticPub []byte) ([]byte, error) {
	key, err := crypto.MarshalPublicKey(identity.GetPublic())
	if err != nil {
		return nil, fmt.Errorf("marshal identity key: %w", err)
	}
	sig, err := identity.Sign(append([]byte(payloadSigPrefix), staticPub...))
	if err != nil {
		return nil, fmt.Errorf("sign static key: %w", err)
	}
	p := handshakePayload{IdentityKey: key, IdentitySig: sig}
	return p.Marshal(), nil
}

// verifyRemotePayload 校验签名并派生远端 PeerID
func verifyRemotePayload(data, remoteStatic []byte) (types.PeerID, []byte, error) {
	if len(remoteStatic) != noise.DH25519.DHLen() {
		return "", nil, fmt.Errorf("%w: remote static key length %d", ErrInvalidHandshake, len(remoteStatic))
	}

	var p handshakePayload
	if err := p.Unmarshal(data); err != nil {
		return "", nil, err
	}
	pub, err := crypto.UnmarshalPublicKeyBytes(p.IdentityKey)
	if err != nil {
		return "", nil, fmt.Errorf("%w: identity key: %v", ErrInvalidPayload, err)
	}

	ok, err := pub.Verify(append([]byte(payloadSigPrefix), remoteStatic...), p.IdentitySig)
	if err != nil || !ok {
		return "", nil, ErrInvalidSignature
	}

	id, err := crypto.PeerIDFromPublicKey(pub)
	if err != nil {
		return "", nil, fmt.Errorf("derive peer id: %w", err)
	}
	return id, p.IdentityKey, nil
}

// writeFrame 写入一帧（2 字节长度 + 数据），一次系统调用
func writeFrame(w io.Writer, data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("frame too large: %d", len(data))
	}
	buf := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(buf, uint16(len(data)))
	copy(buf[2:], data)
	_, err := w.Write(buf)
	return err
}

// readFrame 读取一帧
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	data := make([]byte, binary.BigEndian.Uint16(lenBuf[:]))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
