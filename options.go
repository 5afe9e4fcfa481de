package netgate

import (
	"errors"
	"net"

	madns "github.com/multiformats/go-multiaddr-dns"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Option 构建选项
type Option func(*options) error

// FailedUpgrade 一次失败的入站升级
type FailedUpgrade struct {
	RemoteAddr net.Addr
	Err        error
}

// FailureHandler 入站升级失败回调，在升级 goroutine 中调用，不得阻塞
type FailureHandler func(FailedUpgrade)

type options struct {
	registerer    prometheus.Registerer
	resolver      *madns.Resolver
	onFailure     FailureHandler
	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{onFailure: logFailure}
}

// logFailure 默认失败处理：只记录日志，指标由升级器记录
func logFailure(f FailedUpgrade) {
	logger.Debug("入站连接升级失败", "remoteAddr", f.RemoteAddr, "error", f.Err)
}

// WithRegisterer 指定 prometheus 注册器，仅在配置启用 Metrics 时生效
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		if reg == nil {
			return errors.New("registerer 不能为空")
		}
		o.registerer = reg
		return nil
	}
}

// WithResolver 指定 DNS 解析器
func WithResolver(r *madns.Resolver) Option {
	return func(o *options) error {
		if r == nil {
			return errors.New("resolver 不能为空")
		}
		o.resolver = r
		return nil
	}
}

// WithFailureHandler 指定入站升级失败回调
func WithFailureHandler(h FailureHandler) Option {
	return func(o *options) error {
		if h == nil {
			return errors.New("failure handler 不能为空")
		}
		o.onFailure = h
		return nil
	}
}

// WithFxOptions 追加用户 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
