package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Secp256k1 密钥常量
const (
	// Secp256k1PrivateKeySize 私钥标量大小
	Secp256k1PrivateKeySize = secp256k1.PrivKeyBytesLen
	// Secp256k1PublicKeySize 压缩公钥大小
	Secp256k1PublicKeySize = secp256k1.PubKeyBytesLenCompressed
)

// Secp256k1PublicKey Secp256k1 公钥，Raw 为 33 字节压缩格式
type Secp256k1PublicKey struct {
	k *secp256k1.PublicKey
}

func (k *Secp256k1PublicKey) Raw() ([]byte, error) {
	return k.k.SerializeCompressed(), nil
}

func (k *Secp256k1PublicKey) Type() KeyType { return KeyTypeSecp256k1 }

func (k *Secp256k1PublicKey) Equals(other Key) bool {
	sk, ok := other.(*Secp256k1PublicKey)
	if !ok {
		return KeyEqual(k, other)
	}
	return k.k.IsEqual(sk.k)
}

// Verify 验证 DER 编码的 ECDSA 签名（对 sha256(data) 签名）
func (k *Secp256k1PublicKey) Verify(data, sig []byte) (bool, error) {
	s, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false, nil
	}
	hash := sha256.Sum256(data)
	return s.Verify(hash[:], k.k), nil
}

// Secp256k1PrivateKey Secp256k1 私钥，Raw 为 32 字节标量
type Secp256k1PrivateKey struct {
	k *secp256k1.PrivateKey
}

func (k *Secp256k1PrivateKey) Raw() ([]byte, error) {
	return k.k.Serialize(), nil
}

func (k *Secp256k1PrivateKey) Type() KeyType { return KeyTypeSecp256k1 }

func (k *Secp256k1PrivateKey) Equals(other Key) bool {
	sk, ok := other.(*Secp256k1PrivateKey)
	if !ok {
		return KeyEqual(k, other)
	}
	return k.k.Key.Equals(&sk.k.Key)
}

// Sign 返回 sha256(data) 的 DER 编码 ECDSA 签名
func (k *Secp256k1PrivateKey) Sign(data []byte) ([]byte, error) {
	hash := sha256.Sum256(data)
	return ecdsa.Sign(k.k, hash[:]).Serialize(), nil
}

func (k *Secp256k1PrivateKey) GetPublic() PublicKey {
	return &Secp256k1PublicKey{k: k.k.PubKey()}
}

// GenerateSecp256k1Key 生成 Secp256k1 密钥对
func GenerateSecp256k1Key(reader io.Reader) (PrivateKey, PublicKey, error) {
	priv, err := secp256k1.GeneratePrivateKeyFromRand(reader)
	if err != nil {
		return nil, nil, err
	}
	sk := &Secp256k1PrivateKey{k: priv}
	return sk, sk.GetPublic(), nil
}

// UnmarshalSecp256k1PublicKey 解析压缩或非压缩格式的公钥
func UnmarshalSecp256k1PublicKey(data []byte) (PublicKey, error) {
	pub, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnmarshalFailed, err)
	}
	return &Secp256k1PublicKey{k: pub}, nil
}

// UnmarshalSecp256k1PrivateKey 从 32 字节标量反序列化私钥
//
// 标量为零或不小于曲线阶时返回 ErrInvalidPrivateKey。
func UnmarshalSecp256k1PrivateKey(data []byte) (PrivateKey, error) {
	if len(data) != Secp256k1PrivateKeySize {
		return nil, fmt.Errorf("%w: secp256k1 private key must be %d bytes, got %d",
			ErrInvalidKeySize, Secp256k1PrivateKeySize, len(data))
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(data); overflow || scalar.IsZero() {
		return nil, ErrInvalidPrivateKey
	}
	return &Secp256k1PrivateKey{k: secp256k1.NewPrivateKey(&scalar)}, nil
}
