// Package yamux 提供基于 hashicorp/yamux 的备选多路复用实现
//
// 协议标识 /yamux/hashicorp/1.0.0，仅在对端不支持 /yamux/1.0.0 时协商使用。
package yamux

import (
	"io"
	"time"

	"github.com/hashicorp/yamux"

	"github.com/dep2p/go-netgate/config"
)

// Config 备选多路复用器配置
type Config struct {
	MaxStreamWindowSize uint32
	KeepAliveInterval   time.Duration
	AcceptBacklog       int
}

// DefaultConfig 返回默认配置，窗口与最大响应大小一致
func DefaultConfig() Config {
	return Config{
		MaxStreamWindowSize: config.MaxResponseSize,
		KeepAliveInterval:   30 * time.Second,
		AcceptBacklog:       256,
	}
}

// toYamux 转换为 hashicorp/yamux 配置
func (c Config) toYamux() *yamux.Config {
	yc := yamux.DefaultConfig()
	yc.LogOutput = io.Discard
	if c.MaxStreamWindowSize > 0 {
		yc.MaxStreamWindowSize = c.MaxStreamWindowSize
	}
	if c.KeepAliveInterval > 0 {
		yc.KeepAliveInterval = c.KeepAliveInterval
	}
	if c.AcceptBacklog > 0 {
		yc.AcceptBacklog = c.AcceptBacklog
	}
	return yc
}
