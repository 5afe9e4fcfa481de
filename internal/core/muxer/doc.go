// Package muxer 实现基于 go-yamux 的流多路复用
//
// 协议标识 /yamux/1.0.0。单流接收窗口等于最大响应大小，
// 保证一次完整响应无需等待窗口更新即可发出。
//
// 会话由本端或对端关闭时 CloseChan 关闭，上层据此释放连接配额。
//
//	tr := muxer.NewTransport(muxer.DefaultConfig())
//	mc, _ := tr.NewConn(secureConn, isServer)
//	s, _ := mc.OpenStream(ctx)
package muxer
