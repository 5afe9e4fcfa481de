package config

import "errors"

var (
	// ErrConfiguration 配置错误，启动前即失败
	ErrConfiguration = errors.New("configuration error")

	// ErrGenesisCommitment 无法计算创世承诺根
	ErrGenesisCommitment = errors.New("genesis commitment unavailable")

	// ErrInvalidSecretKey 导入的私钥无效
	ErrInvalidSecretKey = errors.New("invalid secret key")
)
