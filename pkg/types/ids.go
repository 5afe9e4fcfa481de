package types

import (
	"fmt"

	"github.com/mr-tron/base58"
	mh "github.com/multiformats/go-multihash"
)

// ============================================================================
//                              PeerID - 节点标识
// ============================================================================

// PeerID 节点唯一标识符
//
// 内容为公钥序列化结果的 sha2-256 multihash 的 Base58 编码，
// 因此可以直接作为 /p2p/<PeerID> 多地址组件使用。
type PeerID string

// EmptyPeerID 空节点 ID
const EmptyPeerID PeerID = ""

// String 返回 PeerID 的 Base58 字符串表示
func (id PeerID) String() string {
	return string(id)
}

// ShortString 返回 Base58 前 8 个字符，用于日志
func (id PeerID) ShortString() string {
	s := string(id)
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// IsEmpty 检查 PeerID 是否为空
func (id PeerID) IsEmpty() bool {
	return id == EmptyPeerID
}

// Bytes 返回 multihash 原始字节
func (id PeerID) Bytes() ([]byte, error) {
	if id.IsEmpty() {
		return nil, ErrEmptyPeerID
	}
	b, err := base58.Decode(string(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeerID, err)
	}
	return b, nil
}

// Validate 校验 PeerID 是否为合法的 sha2-256 multihash
func (id PeerID) Validate() error {
	b, err := id.Bytes()
	if err != nil {
		return err
	}
	decoded, err := mh.Decode(b)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPeerID, err)
	}
	if decoded.Code != mh.SHA2_256 {
		return fmt.Errorf("%w: unexpected multihash code %#x", ErrInvalidPeerID, decoded.Code)
	}
	return nil
}

// ParsePeerID 从 Base58 字符串解析 PeerID
func ParsePeerID(s string) (PeerID, error) {
	id := PeerID(s)
	if err := id.Validate(); err != nil {
		return EmptyPeerID, err
	}
	return id, nil
}

// PeerIDFromMultihash 从 multihash 字节创建 PeerID
func PeerIDFromMultihash(b []byte) (PeerID, error) {
	if _, err := mh.Decode(b); err != nil {
		return EmptyPeerID, fmt.Errorf("%w: %v", ErrInvalidPeerID, err)
	}
	return PeerID(base58.Encode(b)), nil
}

// PeerIDFromBytes 对任意字节做 sha2-256 multihash 并生成 PeerID
//
// 公钥派生见 crypto.PeerIDFromPublicKey。
func PeerIDFromBytes(data []byte) (PeerID, error) {
	sum, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return EmptyPeerID, err
	}
	return PeerID(base58.Encode(sum)), nil
}

// ============================================================================
//                              ProtocolID - 协议标识
// ============================================================================

// ProtocolID 协议标识符，用于 multistream-select 协商
type ProtocolID string

// String 返回协议 ID 的字符串表示
func (p ProtocolID) String() string {
	return string(p)
}
