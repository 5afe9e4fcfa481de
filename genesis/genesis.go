// Package genesis 定义创世承诺
//
// 网络校验和由创世承诺的根哈希派生，创世数据任何字段不同的节点都属于不同网络。
package genesis

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	sha256 "github.com/minio/sha256-simd"
)

// HashSize 各字段哈希长度
const HashSize = 32

var (
	// ErrInvalidHash 字段不是 32 字节的十六进制哈希
	ErrInvalidHash = errors.New("invalid genesis hash")
)

// Commitment 创世承诺
//
// Root 失败表示创世数据本身不完整，调用方应拒绝启动。
type Commitment interface {
	Root() ([HashSize]byte, error)
}

// Genesis 创世区块摘要
//
// 所有字段为 32 字节哈希的十六进制表示（可带 0x 前缀）。
type Genesis struct {
	ChainConfigHash  string `json:"chain_config_hash"`
	CoinsRoot        string `json:"coins_root"`
	ContractsRoot    string `json:"contracts_root"`
	MessagesRoot     string `json:"messages_root"`
	TransactionsRoot string `json:"transactions_root"`
}

var _ Commitment = (*Genesis)(nil)

// Root 计算创世承诺根
//
// Root = sha256(chain_config_hash || coins_root || contracts_root || messages_root || transactions_root)
func (g *Genesis) Root() ([HashSize]byte, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"chain_config_hash", g.ChainConfigHash},
		{"coins_root", g.CoinsRoot},
		{"contracts_root", g.ContractsRoot},
		{"messages_root", g.MessagesRoot},
		{"transactions_root", g.TransactionsRoot},
	}

	h := sha256.New()
	for _, f := range fields {
		b, err := decodeHash(f.value)
		if err != nil {
			return [HashSize]byte{}, fmt.Errorf("%s: %w", f.name, err)
		}
		h.Write(b)
	}

	var root [HashSize]byte
	copy(root[:], h.Sum(nil))
	return root, nil
}

func decodeHash(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if len(b) != HashSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidHash, HashSize, len(b))
	}
	return b, nil
}

// Default 返回本地开发网络的创世承诺
//
// 各字段为对应名字的 sha256，仅用于测试和本地网络。
func Default() *Genesis {
	field := func(name string) string {
		sum := sha256.Sum256([]byte("netgate/devnet/" + name))
		return hex.EncodeToString(sum[:])
	}
	return &Genesis{
		ChainConfigHash:  field("chain_config"),
		CoinsRoot:        field("coins"),
		ContractsRoot:    field("contracts"),
		MessagesRoot:     field("messages"),
		TransactionsRoot: field("transactions"),
	}
}

// Load 从 JSON 文件加载创世承诺
func Load(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 JSON 格式的创世承诺，不校验字段内容
func Parse(data []byte) (*Genesis, error) {
	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	return &g, nil
}
