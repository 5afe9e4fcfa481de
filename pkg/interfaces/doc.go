// Package interfaces 定义 netgate 的公共接口
//
// 连接建立流水线中每一层一个接口文件：
//   - transport.go  - 底层传输（TCP / WebSocket）
//   - security.go   - 安全传输（Noise）
//   - muxer.go      - 流多路复用（yamux）
//   - admission.go  - 准入控制与连接状态
//   - upgrader.go   - 连接升级器（组合以上各层）
package interfaces
