// Package metrics 提供连接建立相关的 prometheus 指标
//
// 所有方法对 nil *Metrics 安全，未启用指标时上层直接传 nil。
//
// 指标：
//   - netgate_upgrades_total{direction,result}  升级结果计数
//   - netgate_upgrade_duration_seconds{direction} 升级耗时
//   - netgate_connections / netgate_connected_peers / netgate_capped_peers 连接状态
package metrics
