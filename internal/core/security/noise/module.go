package noise

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-netgate/config"
	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("security/noise",
		fx.Provide(ProvideTransport),
	)
}

// ProvideTransport 用配置中的身份密钥创建 Noise 传输
func ProvideTransport(cfg config.Initialized) (pkgif.SecureTransport, error) {
	return New(cfg.Settings().Keypair)
}
