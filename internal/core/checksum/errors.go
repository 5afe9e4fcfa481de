package checksum

import (
	"errors"
	"fmt"
)

var (
	// ErrNetworkMismatch 对端属于不同网络
	ErrNetworkMismatch = errors.New("network checksum mismatch")

	// ErrUninitialized 本地校验和为零值
	ErrUninitialized = errors.New("checksum not initialized")
)

// MismatchError 校验和不一致，携带双方的值
type MismatchError struct {
	Local  Checksum
	Remote Checksum
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: local %s, remote %s", ErrNetworkMismatch, e.Local, e.Remote)
}

func (e *MismatchError) Unwrap() error {
	return ErrNetworkMismatch
}
