// Package checksum 实现网络兼容性校验
//
// 安全握手完成后，双方在加密通道上协商 /netgate/checksum/1.0.0，
// 随后同时发送本地 32 字节校验和并读取对端的校验和，逐字节比较。
// 不一致的连接在准入控制之前被拒绝，不占用任何连接配额。
package checksum

import (
	"github.com/dep2p/go-netgate/pkg/lib/log"
	"github.com/dep2p/go-netgate/pkg/types"
)

var logger = log.Logger("core/checksum")

// ProtocolID 校验和交换协议
const ProtocolID types.ProtocolID = "/netgate/checksum/1.0.0"

// Size 校验和字节数
const Size = len(types.Checksum{})

// Checksum 网络身份校验和
type Checksum = types.Checksum

// FromRoot 由创世承诺根构造校验和
func FromRoot(root [Size]byte) Checksum {
	return Checksum(root)
}
