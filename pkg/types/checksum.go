package types

import "encoding/hex"

// Checksum 网络身份校验和
//
// 由创世承诺派生，两个节点只有在校验和逐字节一致时才属于同一网络。
// 零值表示未初始化的配置。
type Checksum [32]byte

// String 返回十六进制表示
func (c Checksum) String() string {
	return hex.EncodeToString(c[:])
}

// ShortString 返回前 8 个十六进制字符，用于日志
func (c Checksum) ShortString() string {
	return c.String()[:8]
}

// IsZero 检查是否为零值
func (c Checksum) IsZero() bool {
	return c == Checksum{}
}

// Bytes 返回字节切片副本
func (c Checksum) Bytes() []byte {
	return append([]byte(nil), c[:]...)
}
