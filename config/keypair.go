package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dep2p/go-netgate/pkg/lib/crypto"
)

// KeypairFromSecret 从 32 字节 secp256k1 私钥标量导入身份密钥
//
// 传入的切片在导入后被清零。
func KeypairFromSecret(secret []byte) (crypto.PrivateKey, error) {
	defer clear(secret)
	priv, err := crypto.UnmarshalSecp256k1PrivateKey(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSecretKey, err)
	}
	return priv, nil
}

// KeypairFromHex 从十六进制私钥导入身份密钥，可带 0x 前缀
func KeypairFromHex(s string) (crypto.PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretKey, err)
	}
	return KeypairFromSecret(b)
}
