// Package crypto 提供 netgate 的节点身份密钥
//
// # 支持的密钥类型
//
//   - Secp256k1（默认）：区块链节点身份使用的曲线，基于 decred secp256k1 实现
//   - Ed25519：高性能椭圆曲线签名
//
// # 快速开始
//
//	priv, pub, err := crypto.GenerateKeyPair(crypto.KeyTypeSecp256k1)
//	sig, err := priv.Sign(data)
//	ok, err := pub.Verify(data, sig)
//	id, err := crypto.PeerIDFromPublicKey(pub)
//
// # 序列化格式
//
// 公钥/私钥序列化为 [Type(1)] [Length(4, 大端序)] [Data(n)]，
// PeerID 为序列化公钥的 sha2-256 multihash 的 Base58 编码。
package crypto
