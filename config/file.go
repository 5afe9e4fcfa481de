package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"

	ma "github.com/multiformats/go-multiaddr"
)

// FileConfig 配置文件格式
//
// 未出现的字段使用 Default 的值；未提供 secret_key 时生成新密钥。
type FileConfig struct {
	NetworkName           string    `json:"network_name"`
	SecretKey             string    `json:"secret_key,omitempty"`
	Address               string    `json:"address,omitempty"`
	PublicAddress         string    `json:"public_address,omitempty"`
	TCPPort               *uint16   `json:"tcp_port,omitempty"`
	EnableWebSocket       *bool     `json:"enable_websocket,omitempty"`
	MaxBlockSize          *int      `json:"max_block_size,omitempty"`
	BootstrapNodes        []string  `json:"bootstrap_nodes,omitempty"`
	ReservedNodes         []string  `json:"reserved_nodes,omitempty"`
	ReservedNodesOnlyMode *bool     `json:"reserved_nodes_only_mode,omitempty"`
	EnableMDNS            *bool     `json:"enable_mdns,omitempty"`
	AllowPrivateAddresses *bool     `json:"allow_private_addresses,omitempty"`
	RandomWalk            *Duration `json:"random_walk,omitempty"`
	ConnectionIdleTimeout *Duration `json:"connection_idle_timeout,omitempty"`
	MaxPeersConnected     *uint32   `json:"max_peers_connected,omitempty"`
	MaxConnectionsPerPeer *uint32   `json:"max_connections_per_peer,omitempty"`
	IdentifyInterval      *Duration `json:"identify_interval,omitempty"`
	InfoInterval          *Duration `json:"info_interval,omitempty"`
	RequestTimeout        *Duration `json:"request_timeout,omitempty"`
	ConnectionKeepAlive   *Duration `json:"connection_keep_alive,omitempty"`
	TransportTimeout      *Duration `json:"transport_timeout,omitempty"`
	Metrics               *bool     `json:"metrics,omitempty"`
}

// Load 从 JSON 文件加载未初始化的配置
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config file: %v", ErrConfiguration, err)
	}
	return FromJSON(data)
}

// FromJSON 解析 JSON 格式配置
func FromJSON(data []byte) (*Config, error) {
	var fc FileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: parse config: %v", ErrConfiguration, err)
	}
	return fc.ToConfig()
}

// ToConfig 在默认配置上应用文件内容
func (fc *FileConfig) ToConfig() (*Config, error) {
	cfg, err := New(fc.NetworkName)
	if err != nil {
		return nil, err
	}

	if fc.SecretKey != "" {
		priv, err := KeypairFromHex(fc.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("%w: secret_key: %w", ErrConfiguration, err)
		}
		cfg.Keypair = priv
	}
	if fc.Address != "" {
		ip := net.ParseIP(fc.Address)
		if ip == nil {
			return nil, fmt.Errorf("%w: invalid address %q", ErrConfiguration, fc.Address)
		}
		cfg.Address = ip
	}
	if fc.PublicAddress != "" {
		addr, err := ma.NewMultiaddr(fc.PublicAddress)
		if err != nil {
			return nil, fmt.Errorf("%w: public_address: %v", ErrConfiguration, err)
		}
		cfg.PublicAddress = addr
	}

	if cfg.BootstrapNodes, err = parseAddrs("bootstrap_nodes", fc.BootstrapNodes); err != nil {
		return nil, err
	}
	if cfg.ReservedNodes, err = parseAddrs("reserved_nodes", fc.ReservedNodes); err != nil {
		return nil, err
	}

	setIf(&cfg.TCPPort, fc.TCPPort)
	setIf(&cfg.EnableWebSocket, fc.EnableWebSocket)
	setIf(&cfg.MaxBlockSize, fc.MaxBlockSize)
	setIf(&cfg.ReservedNodesOnlyMode, fc.ReservedNodesOnlyMode)
	setIf(&cfg.EnableMDNS, fc.EnableMDNS)
	setIf(&cfg.AllowPrivateAddresses, fc.AllowPrivateAddresses)
	setIf(&cfg.MaxPeersConnected, fc.MaxPeersConnected)
	setIf(&cfg.MaxConnectionsPerPeer, fc.MaxConnectionsPerPeer)
	setIf(&cfg.Metrics, fc.Metrics)

	cfg.RandomWalk = durationOr(fc.RandomWalk, cfg.RandomWalk)
	cfg.ConnectionIdleTimeout = durationOr(fc.ConnectionIdleTimeout, cfg.ConnectionIdleTimeout)
	cfg.IdentifyInterval = durationOr(fc.IdentifyInterval, cfg.IdentifyInterval)
	cfg.InfoInterval = durationOr(fc.InfoInterval, cfg.InfoInterval)
	cfg.RequestTimeout = durationOr(fc.RequestTimeout, cfg.RequestTimeout)
	cfg.ConnectionKeepAlive = durationOr(fc.ConnectionKeepAlive, cfg.ConnectionKeepAlive)
	cfg.TransportTimeout = durationOr(fc.TransportTimeout, cfg.TransportTimeout)

	return cfg, nil
}

func parseAddrs(field string, in []string) ([]ma.Multiaddr, error) {
	out := make([]ma.Multiaddr, 0, len(in))
	for _, s := range in {
		addr, err := ma.NewMultiaddr(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %q: %v", ErrConfiguration, field, s, err)
		}
		out = append(out, addr)
	}
	return out, nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
