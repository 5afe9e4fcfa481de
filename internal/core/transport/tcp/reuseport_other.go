//go:build !unix

package tcp

import "syscall"

const reuseportSupported = false

// reuseControl 当前平台不支持端口复用，不做任何设置
func reuseControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
