package upgrader

import (
	"time"

	"github.com/dep2p/go-netgate/config"
	"github.com/dep2p/go-netgate/internal/core/metrics"
	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/types"
)

// Config 升级器配置
type Config struct {
	// SecurityTransports 安全传输列表（按优先级排序）
	SecurityTransports []pkgif.SecureTransport

	// StreamMuxers 流多路复用器列表（按优先级排序）
	StreamMuxers []pkgif.StreamMuxer

	// Checksum 本地网络校验和
	Checksum types.Checksum

	// Gate 准入控制
	Gate pkgif.AdmissionGate

	// Timeout 整个升级过程的超时，0 使用 config.TransportTimeout
	Timeout time.Duration

	// Metrics 可为 nil
	Metrics *metrics.Metrics
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return config.TransportTimeout
}
