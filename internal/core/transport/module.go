package transport

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-netgate/config"
	"github.com/dep2p/go-netgate/internal/core/transport/tcp"
	"github.com/dep2p/go-netgate/internal/core/transport/websocket"
	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(
			ProvideConfig,
			fx.Annotate(
				NewComposite,
				fx.ParamTags(``, `optional:"true"`),
			),
			func(c *Composite) pkgif.Transport { return c },
		),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideConfig 从已初始化配置提供传输配置
func ProvideConfig(cfg config.Initialized) Config {
	s := cfg.Settings()
	return Config{
		EnableWebSocket:       s.EnableWebSocket,
		AllowPrivateAddresses: s.AllowPrivateAddresses,
		TCP:                   tcp.Config{PortReuse: true},
		WebSocket:             websocket.DefaultConfig(),
	}
}

func registerLifecycle(lc fx.Lifecycle, c *Composite) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})
}
