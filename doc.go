// Package netgate 提供区块链节点的安全连接建立层
//
// 每一条入站和出站连接都要经过：
//
//   - Noise XX 加密握手，认证双方 PeerID
//   - 网络校验和交换，拒绝不同创世配置的节点
//   - 准入控制，只接受保留节点或按连接数上限准入
//   - yamux 多路复用
//
// 全部步骤共享一个超时（默认 20 秒），任一步失败连接立即关闭。
//
// # 快速开始
//
//	g, _ := genesis.Load("genesis.json")
//	cfg := config.Default("devnet")
//	ic, err := cfg.Init(g)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	t, state, err := netgate.BuildTransport(ic)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close()
//
//	// 监听配置中的地址
//	listeners, _ := t.ListenConfigured()
//	go func() {
//	    for {
//	        conn, err := listeners[0].Accept()
//	        if err != nil {
//	            return
//	        }
//	        go handle(conn)
//	    }
//	}()
//
//	// 拨号必须带 /p2p/<PeerID>
//	conn, err := t.Dial(ctx, ma.StringCast("/ip4/1.2.3.4/tcp/30333/p2p/16Uiu2..."))
//	fmt.Println(state.ConnectedPeers())
//
// # 常量
//
// MaxResponseSize 必须与入口代理的请求体大小上限一致。
package netgate
