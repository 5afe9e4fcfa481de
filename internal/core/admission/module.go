package admission

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-netgate/config"
	"github.com/dep2p/go-netgate/internal/core/connmgr"
	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("admission",
		fx.Provide(ProvideGate),
	)
}

// Params 准入控制依赖
type Params struct {
	fx.In

	Config config.Initialized
	State  *connmgr.ConnectionState
}

// ProvideGate 按配置提供准入策略
func ProvideGate(p Params) pkgif.AdmissionGate {
	return FromConfig(p.Config, p.State)
}

// FromConfig 按已初始化配置选择准入策略
func FromConfig(cfg config.Initialized, state StateTracker) pkgif.AdmissionGate {
	s := cfg.Settings()
	return New(s.ReservedNodesOnlyMode, cfg.ReservedPeers(), state, Limits{
		MaxPeersConnected:     s.MaxPeersConnected,
		MaxConnectionsPerPeer: s.MaxConnectionsPerPeer,
	})
}
