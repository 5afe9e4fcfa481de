// Package main 提供 netgate 命令行入口
//
// 启动一个只做连接建立的节点：监听配置地址、拨号引导节点，
// 打印每一条通过认证、网络校验和准入的连接。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	netgate "github.com/dep2p/go-netgate"
	"github.com/dep2p/go-netgate/config"
	"github.com/dep2p/go-netgate/genesis"
	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/lib/log"
)

var logger = log.Logger("netgate/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//   命令行参数：运行时覆盖
//   JSON 配置文件：节点的固定配置
//
var (
	configFile  = flag.String("config", "", "配置文件路径")
	genesisFile = flag.String("genesis", "", "创世承诺文件路径（默认使用开发网络）")
	network     = flag.String("network", "devnet", "网络名称（未指定配置文件时使用）")
	port        = flag.Int("port", -1, "监听端口，覆盖配置文件（0 = 随机端口）")
	dial        = flag.String("dial", "", "启动后拨号的完整地址，逗号分隔")
	metricsAddr = flag.String("metrics-addr", "", "prometheus 指标监听地址，例如 127.0.0.1:9100")
	logLevel    = flag.String("log-level", "info", "日志级别 (debug/info/warn/error)")
	logFormat   = flag.String("log-format", "text", "日志格式 (text/json)")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	log.Setup(os.Stderr, log.Format(*logFormat), level)

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}
	g, err := loadGenesis()
	if err != nil {
		return fmt.Errorf("创世承诺错误: %w", err)
	}
	initialized, err := cfg.Init(g)
	if err != nil {
		return err
	}

	var opts []netgate.Option
	var reg *prometheus.Registry
	if *metricsAddr != "" {
		reg = prometheus.NewRegistry()
		opts = append(opts, netgate.WithRegisterer(reg))
	}

	t, state, err := netgate.BuildTransport(initialized, opts...)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = t.Close() }()

	if reg != nil {
		srv := serveMetrics(*metricsAddr, reg)
		defer func() { _ = srv.Close() }()
	}

	listeners, err := t.ListenConfigured()
	if err != nil {
		return fmt.Errorf("监听失败: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("节点 ID: %s\n", t.PeerID())
	fmt.Printf("网络校验和: %s\n", initialized.Checksum())
	for _, l := range listeners {
		fmt.Printf("监听地址: %s\n", l.Multiaddr())
		go acceptLoop(ctx, l)
	}

	targets, err := dialTargets(initialized)
	if err != nil {
		return err
	}
	for _, addr := range targets {
		go dialPeer(ctx, t, addr)
	}

	fmt.Println("节点已启动，按 Ctrl+C 退出")
	<-ctx.Done()

	fmt.Printf("\n正在关闭节点... 当前连接 %d 条，节点 %d 个\n",
		state.TotalConnections(), state.ConnectedPeers())
	return nil
}

// loadConfig 加载配置文件并应用命令行覆盖
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		cfg, err = config.New(*network)
		if err != nil {
			return nil, err
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if *port >= 0 {
		if *port > 65535 {
			return nil, fmt.Errorf("%w: port %d out of range", config.ErrConfiguration, *port)
		}
		cfg.TCPPort = uint16(*port)
	}
	if *metricsAddr != "" {
		cfg.Metrics = true
	}
	return cfg, nil
}

func loadGenesis() (genesis.Commitment, error) {
	if *genesisFile == "" {
		return genesis.Default(), nil
	}
	return genesis.Load(*genesisFile)
}

// dialTargets 合并命令行地址与引导节点
func dialTargets(cfg config.Initialized) ([]ma.Multiaddr, error) {
	targets := append([]ma.Multiaddr(nil), cfg.Settings().BootstrapNodes...)
	for _, s := range splitAndTrim(*dial, ",") {
		addr, err := ma.NewMultiaddr(s)
		if err != nil {
			return nil, fmt.Errorf("无效的拨号地址 %q: %w", s, err)
		}
		targets = append(targets, addr)
	}
	return targets, nil
}

func acceptLoop(ctx context.Context, l *netgate.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				logger.Warn("接受连接失败", "error", err)
			}
			return
		}
		printConn(conn)
		go holdConn(ctx, conn)
	}
}

func dialPeer(ctx context.Context, t *netgate.Transport, addr ma.Multiaddr) {
	conn, err := t.Dial(ctx, addr)
	if err != nil {
		logger.Warn("拨号失败", "addr", addr, "error", err)
		return
	}
	printConn(conn)
	holdConn(ctx, conn)
}

// holdConn 保持连接直到对端关闭或进程退出，拒绝对端打开的流
func holdConn(ctx context.Context, conn pkgif.UpgradedConn) {
	go func() {
		for {
			s, err := conn.AcceptStream()
			if err != nil {
				return
			}
			_ = s.Reset()
		}
	}()
	select {
	case <-ctx.Done():
		_ = conn.Close()
	case <-conn.CloseChan():
		logger.Info("连接已关闭", "remotePeer", conn.RemotePeer().ShortString())
	}
}

func printConn(conn pkgif.UpgradedConn) {
	fmt.Printf("[%s] %s %s (%s, %s)\n",
		time.Now().Format(time.TimeOnly),
		conn.Direction(),
		conn.RemotePeer(),
		conn.Security(),
		conn.Muxer())
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("指标服务退出", "error", err)
		}
	}()
	return srv
}
