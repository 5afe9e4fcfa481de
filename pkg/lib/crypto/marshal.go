package crypto

import (
	"encoding/binary"
	"fmt"
)

// 序列化格式：[Type(1)] [Length(4, 大端序)] [Data(n)]
//
// PeerID 由公钥的该格式派生，格式变更会改变所有节点的 PeerID。
const marshalHeaderSize = 5

func marshalKey(keyType KeyType, raw []byte) []byte {
	buf := make([]byte, marshalHeaderSize+len(raw))
	buf[0] = byte(keyType)
	binary.BigEndian.PutUint32(buf[1:marshalHeaderSize], uint32(len(raw)))
	copy(buf[marshalHeaderSize:], raw)
	return buf
}

func unmarshalKey(data []byte) (KeyType, []byte, error) {
	if len(data) < marshalHeaderSize {
		return KeyTypeUnspecified, nil, fmt.Errorf("%w: data too short", ErrUnmarshalFailed)
	}
	length := binary.BigEndian.Uint32(data[1:marshalHeaderSize])
	if uint64(len(data)) != uint64(marshalHeaderSize)+uint64(length) {
		return KeyTypeUnspecified, nil, fmt.Errorf("%w: data length mismatch", ErrUnmarshalFailed)
	}
	return KeyType(data[0]), data[marshalHeaderSize:], nil
}

// MarshalPublicKey 序列化公钥
func MarshalPublicKey(key PublicKey) ([]byte, error) {
	if key == nil {
		return nil, ErrNilPublicKey
	}
	raw, err := key.Raw()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarshalFailed, err)
	}
	return marshalKey(key.Type(), raw), nil
}

// UnmarshalPublicKeyBytes 反序列化 MarshalPublicKey 的输出
func UnmarshalPublicKeyBytes(data []byte) (PublicKey, error) {
	keyType, raw, err := unmarshalKey(data)
	if err != nil {
		return nil, err
	}
	return UnmarshalPublicKey(keyType, raw)
}

// MarshalPrivateKey 序列化私钥
func MarshalPrivateKey(key PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, ErrNilPrivateKey
	}
	raw, err := key.Raw()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarshalFailed, err)
	}
	return marshalKey(key.Type(), raw), nil
}

// UnmarshalPrivateKeyBytes 反序列化 MarshalPrivateKey 的输出
func UnmarshalPrivateKeyBytes(data []byte) (PrivateKey, error) {
	keyType, raw, err := unmarshalKey(data)
	if err != nil {
		return nil, err
	}
	return UnmarshalPrivateKey(keyType, raw)
}
