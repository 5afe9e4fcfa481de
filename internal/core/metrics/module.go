package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-netgate/config"
	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/lib/crypto"
)

// Params 指标依赖
type Params struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Config     config.Initialized
	State      pkgif.ConnectionState
	Registerer prometheus.Registerer `optional:"true"`
}

// Module 是 metrics 的 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(Provide),
	)
}

// Provide 在配置启用指标时创建 Metrics，否则返回 nil
//
// 应用停止时注销连接状态 gauge。
func Provide(p Params) (*Metrics, error) {
	s := p.Config.Settings()
	if !s.Metrics {
		return nil, nil
	}
	reg := p.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	local, err := crypto.PeerIDFromPrivateKey(s.Keypair)
	if err != nil {
		return nil, err
	}
	m, err := New(reg, p.State, local)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			m.Unregister()
			return nil
		},
	})
	return m, nil
}
