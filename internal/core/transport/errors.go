package transport

import "errors"

var (
	// ErrNoTransport 没有可用的传输
	ErrNoTransport = errors.New("no suitable transport for address")

	// ErrNoDialableAddr 解析后没有可拨号地址
	ErrNoDialableAddr = errors.New("no dialable address")
)
