// Package noise 实现 Noise XX 安全传输
//
// 握手流程（Noise_XX_25519_ChaChaPoly_SHA256）：
//
//	-> e
//	<- e, ee, s, es, payload
//	-> s, se, payload
//
// 每个 Transport 生成一个新的 X25519 静态密钥，payload 中携带身份公钥和
// 身份私钥对 "noise-libp2p-static-key:" + 静态公钥 的签名，
// 从而把 Noise 静态密钥绑定到节点身份。远端 PeerID 由 payload 中的身份公钥派生。
//
// 握手消息和传输消息都使用 2 字节大端长度前缀分帧。
package noise
