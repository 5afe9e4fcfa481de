package config

import (
	"fmt"

	"github.com/dep2p/go-netgate/internal/util/addrutil"
)

// Validate 校验配置
//
// 所有错误都包装 ErrConfiguration。
func (c *Config) Validate() error {
	if c.Keypair == nil {
		return fmt.Errorf("%w: keypair is required", ErrConfiguration)
	}
	if c.NetworkName == "" {
		return fmt.Errorf("%w: network name is required", ErrConfiguration)
	}
	if c.MaxPeersConnected == 0 {
		return fmt.Errorf("%w: max_peers_connected must be positive", ErrConfiguration)
	}
	if c.MaxConnectionsPerPeer == 0 {
		return fmt.Errorf("%w: max_connections_per_peer must be positive", ErrConfiguration)
	}
	if c.TransportTimeout <= 0 {
		return fmt.Errorf("%w: transport_timeout must be positive", ErrConfiguration)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", ErrConfiguration)
	}
	if c.MaxBlockSize <= 0 || c.MaxBlockSize > MaxResponseSize {
		return fmt.Errorf("%w: max_block_size must be in (0, %d]", ErrConfiguration, MaxResponseSize)
	}
	if c.EnableWebSocket && c.TCPPort == 65535 {
		return fmt.Errorf("%w: websocket port would overflow tcp_port+1", ErrConfiguration)
	}
	if _, err := addrutil.PeerIDSet(c.ReservedNodes); err != nil {
		return fmt.Errorf("%w: reserved nodes: %w", ErrConfiguration, err)
	}
	if _, err := addrutil.PeerIDSet(c.BootstrapNodes); err != nil {
		return fmt.Errorf("%w: bootstrap nodes: %w", ErrConfiguration, err)
	}
	if c.ReservedNodesOnlyMode && len(c.ReservedNodes) == 0 {
		return fmt.Errorf("%w: reserved_nodes_only_mode requires at least one reserved node", ErrConfiguration)
	}
	return nil
}
