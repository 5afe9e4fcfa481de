package muxer

import (
	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
)

// Module 是 muxer 的 Fx 模块
//
// 以 name:"muxer_primary" 提供，升级器优先协商。
func Module() fx.Option {
	return fx.Module("muxer",
		fx.Provide(
			fx.Annotate(
				func() pkgif.StreamMuxer { return NewTransport(DefaultConfig()) },
				fx.ResultTags(`name:"muxer_primary"`),
			),
		),
	)
}
