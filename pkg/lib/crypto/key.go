package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"io"
)

// KeyType 密钥类型
//
// 数值写入序列化头部，不可更改。
type KeyType int

const (
	// KeyTypeUnspecified 未指定密钥类型
	KeyTypeUnspecified KeyType = 0
	// KeyTypeEd25519 Ed25519 密钥
	KeyTypeEd25519 KeyType = 2
	// KeyTypeSecp256k1 Secp256k1 密钥（默认）
	KeyTypeSecp256k1 KeyType = 3
)

// String 返回密钥类型名称
func (kt KeyType) String() string {
	switch kt {
	case KeyTypeUnspecified:
		return "Unspecified"
	case KeyTypeEd25519:
		return "Ed25519"
	case KeyTypeSecp256k1:
		return "Secp256k1"
	default:
		return "Unknown"
	}
}

// Key 基础密钥接口
type Key interface {
	// Raw 返回原始密钥字节
	Raw() ([]byte, error)

	// Type 返回密钥类型
	Type() KeyType

	// Equals 比较两个密钥是否相等
	Equals(Key) bool
}

// PublicKey 公钥接口
type PublicKey interface {
	Key

	// Verify 验证签名，签名格式错误时返回 false 而非错误
	Verify(data, sig []byte) (bool, error)
}

// PrivateKey 私钥接口
type PrivateKey interface {
	Key

	// Sign 对数据签名
	Sign(data []byte) ([]byte, error)

	// GetPublic 返回对应的公钥
	GetPublic() PublicKey
}

// GenerateKeyPair 使用 crypto/rand 生成密钥对
func GenerateKeyPair(keyType KeyType) (PrivateKey, PublicKey, error) {
	return GenerateKeyPairWithReader(keyType, rand.Reader)
}

// GenerateKeyPairWithReader 使用指定的随机源生成密钥对
func GenerateKeyPairWithReader(keyType KeyType, reader io.Reader) (PrivateKey, PublicKey, error) {
	switch keyType {
	case KeyTypeEd25519:
		return GenerateEd25519Key(reader)
	case KeyTypeSecp256k1:
		return GenerateSecp256k1Key(reader)
	default:
		return nil, nil, ErrBadKeyType
	}
}

// UnmarshalPublicKey 按类型从原始字节反序列化公钥
func UnmarshalPublicKey(keyType KeyType, data []byte) (PublicKey, error) {
	switch keyType {
	case KeyTypeEd25519:
		return UnmarshalEd25519PublicKey(data)
	case KeyTypeSecp256k1:
		return UnmarshalSecp256k1PublicKey(data)
	default:
		return nil, ErrBadKeyType
	}
}

// UnmarshalPrivateKey 按类型从原始字节反序列化私钥
func UnmarshalPrivateKey(keyType KeyType, data []byte) (PrivateKey, error) {
	switch keyType {
	case KeyTypeEd25519:
		return UnmarshalEd25519PrivateKey(data)
	case KeyTypeSecp256k1:
		return UnmarshalSecp256k1PrivateKey(data)
	default:
		return nil, ErrBadKeyType
	}
}

// KeyEqual 使用常量时间比较两个密钥
func KeyEqual(k1, k2 Key) bool {
	if k1 == nil || k2 == nil {
		return k1 == k2
	}
	if k1.Type() != k2.Type() {
		return false
	}
	b1, err1 := k1.Raw()
	b2, err2 := k2.Raw()
	if err1 != nil || err2 != nil {
		return false
	}
	return subtle.ConstantTimeCompare(b1, b2) == 1
}
