package muxer

import (
	"io"
	"math"
	"net"

	"github.com/libp2p/go-yamux/v5"

	"github.com/dep2p/go-netgate/config"
	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
)

// ProtocolID yamux 协议标识
const ProtocolID = "/yamux/1.0.0"

// Config 多路复用器配置
type Config struct {
	// MaxStreamWindowSize 单流最大接收窗口
	MaxStreamWindowSize uint32
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{MaxStreamWindowSize: config.MaxResponseSize}
}

// Transport yamux 多路复用器
type Transport struct {
	config *yamux.Config
}

var _ pkgif.StreamMuxer = (*Transport)(nil)

// NewTransport 创建 Transport
func NewTransport(cfg Config) *Transport {
	yc := yamux.DefaultConfig()
	if cfg.MaxStreamWindowSize > 0 {
		yc.MaxStreamWindowSize = cfg.MaxStreamWindowSize
	}
	yc.LogOutput = io.Discard
	// 安全层已有缓冲
	yc.ReadBufSize = 0
	yc.MaxIncomingStreams = math.MaxUint32
	return &Transport{config: yc}
}

// NewConn 在安全连接上创建会话
func (t *Transport) NewConn(conn net.Conn, isServer bool) (pkgif.MuxedConn, error) {
	var (
		sess *yamux.Session
		err  error
	)
	if isServer {
		sess, err = yamux.Server(conn, t.config, nil)
	} else {
		sess, err = yamux.Client(conn, t.config, nil)
	}
	if err != nil {
		return nil, err
	}
	return &muxedConn{session: sess}, nil
}

// ID 返回协议标识
func (t *Transport) ID() string { return ProtocolID }

// Config 返回 yamux 配置（供测试使用）
func (t *Transport) Config() *yamux.Config { return t.config }
