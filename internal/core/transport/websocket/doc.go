// Package websocket 提供 WebSocket 原始传输
//
// 地址格式 /ip4/<ip>/tcp/<port>/ws。每个二进制帧承载一段字节流，
// 连接包装为 net.Conn 后交给升级器，与 TCP 走同一条升级流水线。
package websocket
