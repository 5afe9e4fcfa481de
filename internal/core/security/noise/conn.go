package noise

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/flynn/noise"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/types"
)

// maxPlaintext 单帧最大明文长度（扣除 16 字节 AEAD tag）
const maxPlaintext = maxFrameSize - 16

// errEmptyFrame 对端发送了零长度帧
var errEmptyFrame = errors.New("noise: empty frame")

// secureConn Noise 安全连接
type secureConn struct {
	net.Conn

	sendCS *noise.CipherState
	recvCS *noise.CipherState

	localPeer  types.PeerID
	remotePeer types.PeerID
	remoteKey  []byte

	readMu  sync.Mutex
	writeMu sync.Mutex

	// 上一帧未读完的明文
	readBuf []byte
	// 写缓冲：长度前缀 + 密文
	writeBuf []byte
}

var _ pkgif.SecureConn = (*secureConn)(nil)

// Read 读取并解密
func (c *secureConn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if len(c.readBuf) > 0 {
		n := copy(p, c.readBuf)
		c.readBuf = c.readBuf[n:]
		return n, nil
	}

	var lenBuf [2]byte
	if _, err := io.ReadFull(c.Conn, lenBuf[:]); err != nil {
		return 0, err
	}
	msgLen := binary.BigEndian.Uint16(lenBuf[:])
	if msgLen == 0 {
		return 0, errEmptyFrame
	}

	enc := make([]byte, msgLen)
	if _, err := io.ReadFull(c.Conn, enc); err != nil {
		return 0, err
	}
	plain, err := c.recvCS.Decrypt(enc[:0], nil, enc)
	if err != nil {
		return 0, fmt.Errorf("decrypt: %w", err)
	}

	n := copy(p, plain)
	if n < len(plain) {
		c.readBuf = plain[n:]
	}
	return n, nil
}

// Write 分块加密写入，每块至多 maxPlaintext 字节
func (c *secureConn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	written := 0
	for written < len(p) {
		end := written + maxPlaintext
		if end > len(p) {
			end = len(p)
		}
		chunk := p[written:end]

		buf := c.writeBuf[:0]
		buf = append(buf, 0, 0)
		buf, err := c.sendCS.Encrypt(buf, nil, chunk)
		if err != nil {
			return written, fmt.Errorf("encrypt: %w", err)
		}
		binary.BigEndian.PutUint16(buf, uint16(len(buf)-2))
		c.writeBuf = buf

		if _, err := c.Conn.Write(buf); err != nil {
			return written, err
		}
		written = end
	}
	return written, nil
}

// LocalPeer 返回本地节点 ID
func (c *secureConn) LocalPeer() types.PeerID { return c.localPeer }

// RemotePeer 返回远端节点 ID
func (c *secureConn) RemotePeer() types.PeerID { return c.remotePeer }

// RemotePublicKey 返回远端序列化身份公钥
func (c *secureConn) RemotePublicKey() []byte { return c.remoteKey }

// ConnState 返回连接状态
func (c *secureConn) ConnState() pkgif.SecureConnState {
	return pkgif.SecureConnState{
		Protocol:        ProtocolID,
		LocalPeer:       c.localPeer,
		RemotePeer:      c.remotePeer,
		RemotePublicKey: c.remoteKey,
	}
}
