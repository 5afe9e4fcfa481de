package upgrader

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-netgate/config"
	"github.com/dep2p/go-netgate/internal/core/metrics"
	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
)

// Params Upgrader 依赖参数
type Params struct {
	fx.In

	Config   config.Initialized
	Security pkgif.SecureTransport
	Primary  pkgif.StreamMuxer `name:"muxer_primary"`
	Fallback pkgif.StreamMuxer `name:"muxer_fallback" optional:"true"`
	Gate     pkgif.AdmissionGate
	Metrics  *metrics.Metrics `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("upgrader",
		fx.Provide(
			ProvideUpgrader,
			func(u *Upgrader) pkgif.Upgrader { return u },
		),
	)
}

// ProvideUpgrader 提供 Upgrader（依赖注入）
func ProvideUpgrader(p Params) (*Upgrader, error) {
	return New(p.Config.Settings().Keypair, ConfigFromParams(p))
}

// ConfigFromParams 从依赖参数组装配置
func ConfigFromParams(p Params) Config {
	muxers := []pkgif.StreamMuxer{p.Primary}
	if p.Fallback != nil {
		muxers = append(muxers, p.Fallback)
	}
	return Config{
		SecurityTransports: []pkgif.SecureTransport{p.Security},
		StreamMuxers:       muxers,
		Checksum:           p.Config.Checksum(),
		Gate:               p.Gate,
		Timeout:            p.Config.Settings().TransportTimeout,
		Metrics:            p.Metrics,
	}
}
