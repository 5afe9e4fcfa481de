// Package admission 实现准入控制
//
// 校验和一致的连接在建立多路复用之前经过准入控制，两种策略二选一：
//   - ReservedOnly：只接受保留节点，不修改连接状态
//   - Tracker：保留节点总是接受；其余节点受 max_peers_connected 和
//     max_connections_per_peer 限制，检查与计数在 ConnectionState 中原子完成
//
// 策略在构造时确定，之后不再切换。
package admission
