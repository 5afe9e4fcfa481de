package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dep2p/go-netgate/config"
)

// 环境变量名
const (
	envPrefix         = "NETGATE_"
	envSecretKey      = "SECRET_KEY"
	envTCPPort        = "TCP_PORT"
	envEnableWS       = "ENABLE_WEBSOCKET"
	envMaxPeers       = "MAX_PEERS_CONNECTED"
	envReservedOnly   = "RESERVED_NODES_ONLY"
	envAllowPrivAddrs = "ALLOW_PRIVATE_ADDRESSES"
)

// applyEnvOverrides 应用环境变量覆盖配置
//
// 环境变量优先级高于配置文件，但低于命令行参数。
func applyEnvOverrides(cfg *config.Config) error {
	if v := os.Getenv(envPrefix + envSecretKey); v != "" {
		key, err := config.KeypairFromHex(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %w", config.ErrConfiguration, envPrefix, envSecretKey, err)
		}
		cfg.Keypair = key
	}

	if v := os.Getenv(envPrefix + envTCPPort); v != "" {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %v", config.ErrConfiguration, envPrefix, envTCPPort, err)
		}
		cfg.TCPPort = uint16(port)
	}

	if v := os.Getenv(envPrefix + envMaxPeers); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %v", config.ErrConfiguration, envPrefix, envMaxPeers, err)
		}
		cfg.MaxPeersConnected = uint32(n)
	}

	setBool(&cfg.EnableWebSocket, envEnableWS)
	setBool(&cfg.ReservedNodesOnlyMode, envReservedOnly)
	setBool(&cfg.AllowPrivateAddresses, envAllowPrivAddrs)
	return nil
}

func setBool(dst *bool, name string) {
	if v := os.Getenv(envPrefix + name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// splitAndTrim 分割字符串并去除空项
func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
