package yamux

import (
	"fmt"
	"net"

	"github.com/hashicorp/yamux"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
)

// ProtocolID 备选 yamux 协议标识
const ProtocolID = "/yamux/hashicorp/1.0.0"

// Factory 创建 hashicorp/yamux 会话
type Factory struct {
	yamuxCfg *yamux.Config
}

var _ pkgif.StreamMuxer = (*Factory)(nil)

// NewFactory 创建工厂，配置非法时返回错误
func NewFactory(cfg Config) (*Factory, error) {
	yc := cfg.toYamux()
	if err := yamux.VerifyConfig(yc); err != nil {
		return nil, fmt.Errorf("yamux config: %w", err)
	}
	return &Factory{yamuxCfg: yc}, nil
}

// NewConn 在安全连接上创建会话
func (f *Factory) NewConn(conn net.Conn, isServer bool) (pkgif.MuxedConn, error) {
	if conn == nil {
		return nil, fmt.Errorf("连接不能为 nil")
	}

	var (
		session *yamux.Session
		err     error
	)
	if isServer {
		session, err = yamux.Server(conn, f.yamuxCfg)
	} else {
		session, err = yamux.Client(conn, f.yamuxCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("创建 yamux session 失败: %w", err)
	}
	return newMuxer(session), nil
}

// ID 返回协议标识
func (f *Factory) ID() string { return ProtocolID }

// YamuxConfig 返回 yamux 原生配置
func (f *Factory) YamuxConfig() *yamux.Config { return f.yamuxCfg }
