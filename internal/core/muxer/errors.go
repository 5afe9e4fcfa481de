package muxer

import (
	"errors"
	"fmt"

	"github.com/libp2p/go-yamux/v5"
)

var (
	// ErrStreamReset 流被重置
	ErrStreamReset = errors.New("stream reset")

	// ErrConnClosed 会话已关闭
	ErrConnClosed = errors.New("connection closed")
)

// parseError 把 yamux 错误映射为包内错误，保留原始错误链
func parseError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, yamux.ErrStreamReset):
		return fmt.Errorf("%w: %w", ErrStreamReset, err)
	case errors.Is(err, yamux.ErrSessionShutdown):
		return fmt.Errorf("%w: %w", ErrConnClosed, err)
	}
	return err
}
