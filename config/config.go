// Package config 提供 netgate 的配置
//
// 配置分两个阶段构造：
//   - Config：未初始化的参数集合，由 New、Default 或 Load 创建，可以自由修改
//   - Initialized：由 (*Config).Init 结合创世承诺得到，计算出网络校验和后不可再修改
//
// 传输层只接受 Initialized，因此不可能用未初始化的配置（零校验和）建立连接。
//
//	cfg := config.Default("devnet")
//	cfg.TCPPort = 30333
//	initialized, err := cfg.Init(genesis.Default())
package config

import (
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"

	"github.com/dep2p/go-netgate/pkg/lib/crypto"
)

// 运行常量
const (
	// MaxResponseSize 单个请求/响应的最大字节数
	//
	// 必须与入口代理的请求体大小限制一致。
	MaxResponseSize = 18 * 1024 * 1024

	// MaxHeadersPerRequest 单个请求可获取的最大区块头数
	MaxHeadersPerRequest = 100

	// TransportTimeout 单次连接建立（含握手和协商）的超时
	TransportTimeout = 20 * time.Second

	// RequestTimeout 请求/响应超时
	RequestTimeout = 20 * time.Second
)

// 默认值
const (
	DefaultMaxPeersConnected     = 50
	DefaultMaxConnectionsPerPeer = 3
	DefaultConnectionIdleTimeout = 120 * time.Second
	DefaultConnectionKeepAlive   = 20 * time.Second
	DefaultRandomWalk            = 500 * time.Millisecond
	DefaultIdentifyInterval      = 5 * time.Second
	DefaultInfoInterval          = 3 * time.Second
)

// Config 未初始化的配置
//
// 发现、Identify 相关字段只被外部协作组件读取，传输层本身不使用。
type Config struct {
	// Keypair 节点身份私钥
	Keypair crypto.PrivateKey

	// NetworkName 网络名称
	NetworkName string

	// Address 监听 IP
	Address net.IP

	// PublicAddress 对外公布的地址（可选）
	PublicAddress ma.Multiaddr

	// TCPPort 监听端口，0 表示随机端口
	TCPPort uint16

	// EnableWebSocket 额外启用 WebSocket 监听（端口 TCPPort+1）
	EnableWebSocket bool

	// MaxBlockSize 区块最大字节数
	MaxBlockSize int

	// MaxHeadersPerRequest 单个请求最大区块头数
	MaxHeadersPerRequest uint32

	// BootstrapNodes 引导节点（必须带 /p2p/<PeerID>）
	BootstrapNodes []ma.Multiaddr

	// ReservedNodes 保留节点（必须带 /p2p/<PeerID>）
	ReservedNodes []ma.Multiaddr

	// ReservedNodesOnlyMode 只接受保留节点
	ReservedNodesOnlyMode bool

	EnableMDNS            bool
	AllowPrivateAddresses bool
	RandomWalk            time.Duration

	// ConnectionIdleTimeout 空闲连接关闭时间
	ConnectionIdleTimeout time.Duration

	// MaxPeersConnected 非保留节点的最大数量
	MaxPeersConnected uint32

	// MaxConnectionsPerPeer 每个节点的最大连接数
	MaxConnectionsPerPeer uint32

	IdentifyInterval time.Duration
	InfoInterval     time.Duration

	// RequestTimeout 请求/响应超时
	RequestTimeout time.Duration

	// ConnectionKeepAlive 空闲连接保活时间
	ConnectionKeepAlive time.Duration

	// TransportTimeout 连接建立超时
	TransportTimeout time.Duration

	// Metrics 启用 prometheus 指标
	Metrics bool
}

// New 返回带默认值的配置，并从 crypto/rand 生成新的 secp256k1 身份密钥
func New(networkName string) (*Config, error) {
	return NewWithReader(networkName, rand.Reader)
}

// NewWithReader 与 New 相同，但使用指定的随机源生成身份密钥
//
// 随机源读取失败时返回 ErrConfiguration。
func NewWithReader(networkName string, reader io.Reader) (*Config, error) {
	priv, _, err := crypto.GenerateKeyPairWithReader(crypto.KeyTypeSecp256k1, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generate secp256k1 keypair: %w", ErrConfiguration, err)
	}
	return withKeypair(networkName, priv), nil
}

// Default 与 New 相同，系统随机源不可用时 panic，用于测试和示例
func Default(networkName string) *Config {
	cfg, err := New(networkName)
	if err != nil {
		panic(err)
	}
	return cfg
}

func withKeypair(networkName string, priv crypto.PrivateKey) *Config {
	return &Config{
		Keypair:               priv,
		NetworkName:           networkName,
		Address:               net.IPv4zero,
		TCPPort:               0,
		MaxBlockSize:          MaxResponseSize,
		MaxHeadersPerRequest:  MaxHeadersPerRequest,
		BootstrapNodes:        []ma.Multiaddr{},
		ReservedNodes:         []ma.Multiaddr{},
		ReservedNodesOnlyMode: false,
		EnableMDNS:            false,
		AllowPrivateAddresses: true,
		RandomWalk:            DefaultRandomWalk,
		ConnectionIdleTimeout: DefaultConnectionIdleTimeout,
		MaxPeersConnected:     DefaultMaxPeersConnected,
		MaxConnectionsPerPeer: DefaultMaxConnectionsPerPeer,
		IdentifyInterval:      DefaultIdentifyInterval,
		InfoInterval:          DefaultInfoInterval,
		RequestTimeout:        RequestTimeout,
		ConnectionKeepAlive:   DefaultConnectionKeepAlive,
		TransportTimeout:      TransportTimeout,
		Metrics:               false,
	}
}

// Clone 返回深拷贝，切片互不影响
func (c *Config) Clone() *Config {
	out := *c
	out.Address = append(net.IP(nil), c.Address...)
	out.BootstrapNodes = append([]ma.Multiaddr(nil), c.BootstrapNodes...)
	out.ReservedNodes = append([]ma.Multiaddr(nil), c.ReservedNodes...)
	return &out
}

// ListenAddr 返回 TCP 监听多地址
func (c *Config) ListenAddr() (ma.Multiaddr, error) {
	ipAddr, err := manet.FromIP(c.listenIP())
	if err != nil {
		return nil, fmt.Errorf("%w: address: %v", ErrConfiguration, err)
	}
	tcp, err := ma.NewComponent("tcp", fmt.Sprint(c.TCPPort))
	if err != nil {
		return nil, fmt.Errorf("%w: tcp port: %v", ErrConfiguration, err)
	}
	return ipAddr.Encapsulate(tcp), nil
}

// WebSocketListenAddr 返回 WebSocket 监听多地址
//
// TCPPort 为 0 时也使用随机端口，否则使用 TCPPort+1。
func (c *Config) WebSocketListenAddr() (ma.Multiaddr, error) {
	ipAddr, err := manet.FromIP(c.listenIP())
	if err != nil {
		return nil, fmt.Errorf("%w: address: %v", ErrConfiguration, err)
	}
	port := 0
	if c.TCPPort != 0 {
		port = int(c.TCPPort) + 1
	}
	tcpWS, err := ma.NewMultiaddr(fmt.Sprintf("/tcp/%d/ws", port))
	if err != nil {
		return nil, fmt.Errorf("%w: websocket port: %v", ErrConfiguration, err)
	}
	return ipAddr.Encapsulate(tcpWS), nil
}

func (c *Config) listenIP() net.IP {
	if c.Address == nil {
		return net.IPv4zero
	}
	return c.Address
}
