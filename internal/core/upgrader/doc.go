// Package upgrader 实现连接升级流水线
//
// # 升级流程
//
// 原始连接依次经过：
//
//  1. 安全协议协商（multistream-select）
//     - 客户端提议：[/noise]
//
//  2. Noise XX 握手，认证双方 PeerID
//
//  3. 网络校验和交换（/netgate/checksum/1.0.0）
//     - 不一致立即关闭，不占用任何配额
//
//  4. 准入控制
//     - 只接受保留节点，或按连接数上限准入
//
//  5. 多路复用器协商
//     - 客户端提议：[/yamux/1.0.0, /yamux/hashicorp/1.0.0]
//
// 全程受同一个超时约束：原始连接的截止时间只在开始时设置一次，
// 成功后清除。任何一步超时都报告为 ErrTransportTimeout。
//
// 准入成功后得到的配额在连接关闭时归还，无论是本端 Close
// 还是会话自行结束，都只归还一次。
//
// # 使用示例
//
//	u, err := upgrader.New(priv, upgrader.Config{
//	    SecurityTransports: []pkgif.SecureTransport{noiseTransport},
//	    StreamMuxers:       []pkgif.StreamMuxer{primary, fallback},
//	    Checksum:           cfg.Checksum(),
//	    Gate:               gate,
//	})
//	uc, err := u.Upgrade(ctx, rawConn, types.DirOutbound, remotePeer)
package upgrader
