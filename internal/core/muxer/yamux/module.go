package yamux

import (
	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
)

// Module 提供备选多路复用器 name:"muxer_fallback"
func Module() fx.Option {
	return fx.Module("muxer/yamux",
		fx.Provide(
			fx.Annotate(
				func() (pkgif.StreamMuxer, error) { return NewFactory(DefaultConfig()) },
				fx.ResultTags(`name:"muxer_fallback"`),
			),
		),
	)
}
