package config

import (
	"fmt"
	"maps"

	"github.com/dep2p/go-netgate/genesis"
	"github.com/dep2p/go-netgate/internal/core/checksum"
	"github.com/dep2p/go-netgate/internal/util/addrutil"
	"github.com/dep2p/go-netgate/pkg/types"
)

// Initialized 已初始化的配置
//
// 只能通过 (*Config).Init 获得，包外无法实现该接口。
type Initialized interface {
	// Settings 返回参数副本
	Settings() Config

	// Checksum 返回网络校验和
	Checksum() types.Checksum

	// ReservedPeers 返回保留节点 PeerID 集合副本
	ReservedPeers() map[types.PeerID]struct{}

	// BootstrapPeers 返回引导节点 PeerID 集合副本
	BootstrapPeers() map[types.PeerID]struct{}

	sealed()
}

type initialized struct {
	cfg       Config
	checksum  types.Checksum
	reserved  map[types.PeerID]struct{}
	bootstrap map[types.PeerID]struct{}
}

func (i *initialized) Settings() Config {
	return *i.cfg.Clone()
}

func (i *initialized) Checksum() types.Checksum {
	return i.checksum
}

func (i *initialized) ReservedPeers() map[types.PeerID]struct{} {
	return maps.Clone(i.reserved)
}

func (i *initialized) BootstrapPeers() map[types.PeerID]struct{} {
	return maps.Clone(i.bootstrap)
}

func (i *initialized) sealed() {}

// Init 结合创世承诺完成初始化
//
// 不修改接收者；返回值持有配置的深拷贝。
// 创世承诺无法计算时返回 ErrGenesisCommitment，参数非法时返回 ErrConfiguration。
func (c *Config) Init(g genesis.Commitment) (Initialized, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: %w: nil genesis", ErrConfiguration, ErrGenesisCommitment)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	root, err := g.Root()
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrConfiguration, ErrGenesisCommitment, err)
	}

	reserved, err := addrutil.PeerIDSet(c.ReservedNodes)
	if err != nil {
		return nil, fmt.Errorf("%w: reserved nodes: %w", ErrConfiguration, err)
	}
	bootstrap, err := addrutil.PeerIDSet(c.BootstrapNodes)
	if err != nil {
		return nil, fmt.Errorf("%w: bootstrap nodes: %w", ErrConfiguration, err)
	}

	return &initialized{
		cfg:       *c.Clone(),
		checksum:  checksum.FromRoot(root),
		reserved:  reserved,
		bootstrap: bootstrap,
	}, nil
}

// DefaultInitialized 使用默认配置和开发网络创世承诺初始化，用于测试
func DefaultInitialized(networkName string) Initialized {
	cfg, err := Default(networkName).Init(genesis.Default())
	if err != nil {
		panic(fmt.Sprintf("default configuration must initialize: %v", err))
	}
	return cfg
}
