// Package transport 组合原始传输
//
// Composite 把 TCP、可选的 WebSocket 和 DNS 解析组合为一个 Transport：
//
//   - /dns* 地址先解析为 IP 地址
//   - 拨号时 TCP 地址优先，WebSocket 地址作为回退
//   - 监听时按地址的最后一个协议选择具体传输
//
// 这里产出的都是未加密的原始连接，必须交给升级器处理。
package transport
