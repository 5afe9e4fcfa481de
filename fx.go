package netgate

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-netgate/config"
	"github.com/dep2p/go-netgate/internal/core/admission"
	"github.com/dep2p/go-netgate/internal/core/connmgr"
	"github.com/dep2p/go-netgate/internal/core/metrics"
	"github.com/dep2p/go-netgate/internal/core/muxer"
	"github.com/dep2p/go-netgate/internal/core/muxer/yamux"
	"github.com/dep2p/go-netgate/internal/core/security/noise"
	"github.com/dep2p/go-netgate/internal/core/transport"
	"github.com/dep2p/go-netgate/internal/core/transport/dns"
	"github.com/dep2p/go-netgate/internal/core/upgrader"
)

// Module 返回组装整个连接建立层的 Fx 模块
//
// 调用方需要提供 config.Initialized。
func Module() fx.Option {
	return fx.Module("netgate",
		connmgr.Module(),
		admission.Module(),
		noise.Module(),
		muxer.Module(),
		yamux.Module(),
		metrics.Module(),
		upgrader.Module(),
		transport.Module(),
	)
}

// components BuildTransport 从 Fx 图中取出的组件
type components struct {
	base     *transport.Composite
	upgrader *upgrader.Upgrader
	state    *connmgr.ConnectionState
}

// buildFxApp 构建 Fx 应用
func buildFxApp(cfg config.Initialized, o *options, out *components) *fx.App {
	modules := []fx.Option{
		fx.Supply(fx.Annotate(cfg, fx.As(new(config.Initialized)))),
		Module(),
	}

	if o.registerer != nil {
		modules = append(modules, fx.Supply(fx.Annotate(o.registerer, fx.As(new(prometheus.Registerer)))))
	}
	if o.resolver != nil {
		modules = append(modules, fx.Supply(dns.NewResolver(o.resolver)))
	}
	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	modules = append(modules,
		fx.Populate(&out.base, &out.upgrader, &out.state),
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)
	return fx.New(modules...)
}
