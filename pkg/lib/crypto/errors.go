package crypto

import "errors"

// 密钥相关错误
var (
	// ErrBadKeyType 不支持的密钥类型
	ErrBadKeyType = errors.New("invalid or unsupported key type")

	// ErrNilPrivateKey 私钥为空
	ErrNilPrivateKey = errors.New("nil private key")

	// ErrNilPublicKey 公钥为空
	ErrNilPublicKey = errors.New("nil public key")

	// ErrInvalidKeySize 密钥大小无效
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidPrivateKey 私钥无效
	ErrInvalidPrivateKey = errors.New("invalid private key")
)

// 序列化相关错误
var (
	// ErrMarshalFailed 序列化失败
	ErrMarshalFailed = errors.New("marshal failed")

	// ErrUnmarshalFailed 反序列化失败
	ErrUnmarshalFailed = errors.New("unmarshal failed")
)
