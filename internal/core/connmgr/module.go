package connmgr

import (
	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
)

// Module 返回 Fx 模块
//
// 整个进程共享一个 ConnectionState。
func Module() fx.Option {
	return fx.Module("connmgr",
		fx.Provide(
			NewConnectionState,
			ProvideStateView,
		),
	)
}

// ProvideStateView 提供连接状态的只读视图
func ProvideStateView(s *ConnectionState) pkgif.ConnectionState {
	return s
}
