//go:build unix

package tcp

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseportSupported 当前平台支持端口复用
const reuseportSupported = true

// reuseControl 设置 SO_REUSEADDR 和 SO_REUSEPORT
func reuseControl(_, _ string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			opErr = fmt.Errorf("set SO_REUSEADDR: %w", err)
			return
		}
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			opErr = fmt.Errorf("set SO_REUSEPORT: %w", err)
		}
	})
	if err != nil {
		return err
	}
	return opErr
}
