// Package tcp 提供基于 TCP 的原始传输
//
// 只负责建立字节流，安全、校验和、准入与多路复用由升级器完成。
// 支持的地址格式：
//   - /ip4/127.0.0.1/tcp/4001
//   - /ip6/::1/tcp/4001
//
// /dns* 地址须先经 dns 包解析。
package tcp
