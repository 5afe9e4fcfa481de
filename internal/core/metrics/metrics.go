package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/types"
)

const namespace = "netgate"

// Result 升级结果标签
type Result string

const (
	ResultSuccess   Result = "success"
	ResultSecurity  Result = "security"
	ResultChecksum  Result = "checksum"
	ResultAdmission Result = "admission"
	ResultMuxer     Result = "muxer"
	ResultTimeout   Result = "timeout"
)

// Metrics 连接建立指标
type Metrics struct {
	upgrades *prometheus.CounterVec
	duration *prometheus.HistogramVec

	reg    prometheus.Registerer
	gauges []prometheus.Collector
}

// New 创建并注册指标
//
// 升级计数在同一注册器上的多个实例间共享。state 非空时额外注册
// 连接状态 GaugeFunc，以 local_peer 常量标签区分实例，同一节点重复注册返回错误。
func New(reg prometheus.Registerer, state pkgif.ConnectionState, local types.PeerID) (*Metrics, error) {
	m := &Metrics{
		upgrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upgrades_total",
			Help:      "Connection upgrade outcomes by direction and failing stage.",
		}, []string{"direction", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upgrade_duration_seconds",
			Help:      "Time spent upgrading a raw connection.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 13),
		}, []string{"direction"}),
		reg: reg,
	}

	var err error
	if m.upgrades, err = register(reg, m.upgrades); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if state == nil {
		return m, nil
	}

	labels := prometheus.Labels{"local_peer": local.String()}
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "connections",
			Help:        "Established connections across all peers.",
			ConstLabels: labels,
		}, func() float64 { return float64(state.TotalConnections()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "connected_peers",
			Help:        "Distinct peers with at least one connection.",
			ConstLabels: labels,
		}, func() float64 { return float64(state.ConnectedPeers()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "capped_peers",
			Help:        "Connected peers counted against max_peers_connected.",
			ConstLabels: labels,
		}, func() float64 { return float64(state.CappedPeers()) }),
	}
	for _, g := range gauges {
		// 状态 gauge 绑定到各自的 ConnectionState，不能复用已注册的实例
		if err := reg.Register(g); err != nil {
			m.Unregister()
			return nil, fmt.Errorf("register state gauge: %w", err)
		}
		m.gauges = append(m.gauges, g)
	}
	return m, nil
}

// Unregister 注销连接状态 gauge，升级计数保留
func (m *Metrics) Unregister() {
	if m == nil {
		return
	}
	for _, g := range m.gauges {
		m.reg.Unregister(g)
	}
	m.gauges = nil
}

// register 注册收集器，已注册时复用已有实例
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

// ObserveUpgrade 记录一次升级
func (m *Metrics) ObserveUpgrade(dir types.Direction, result Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upgrades.WithLabelValues(dir.String(), string(result)).Inc()
	if result == ResultSuccess {
		m.duration.WithLabelValues(dir.String()).Observe(elapsed.Seconds())
	}
}
