// Package main 提供独立的安全消息响应器
//
// 响应器在固定端口上等待配网对端的加密 Echo 请求并原样回显，
// 同时在发现端口上监听实例名通告。
//
// 使用方法:
//
//	go run main.go --port 5540
//	go run main.go --tcp
//	go run main.go --disable-echo --disable-udc
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	secmsg "github.com/dep2p/go-secmsg"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ 错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 解析命令行参数（各开关相互独立，可任意组合）
	useTCP := flag.Bool("tcp", false, "使用 TCP 作为主传输（默认 UDP）")
	disableEcho := flag.Bool("disable-echo", false, "不注册 Echo 响应器")
	disableUDC := flag.Bool("disable-udc", false, "不启动发现监听")
	port := flag.Uint("port", 0, "主协议监听端口（默认 5540）")
	configFile := flag.String("config", "", "JSON 配置文件路径")
	logLevel := flag.String("log-level", "", "日志级别（debug/info/warn/error）")
	logFile := flag.String("log", "", "日志输出文件（默认 stderr）")
	showVersion := flag.Bool("version", false, "打印版本信息并退出")
	flag.Parse()

	if *showVersion {
		fmt.Println(secmsg.VersionInfo())
		return nil
	}

	var opts []secmsg.Option
	if *configFile != "" {
		opts = append(opts, secmsg.WithConfigFile(*configFile))
	}
	if *useTCP {
		opts = append(opts, secmsg.WithTCP())
	}
	if *disableEcho {
		opts = append(opts, secmsg.WithEchoDisabled())
	}
	if *disableUDC {
		opts = append(opts, secmsg.WithDiscoveryDisabled())
	}
	if *port != 0 {
		if *port > 65535 {
			return fmt.Errorf("端口超出范围: %d", *port)
		}
		opts = append(opts, secmsg.WithListenPort(uint16(*port)))
	}
	if *logLevel != "" {
		opts = append(opts, secmsg.WithLogLevel(*logLevel))
	}
	if *logFile != "" {
		opts = append(opts, secmsg.WithLogFile(*logFile))
	}

	responder, err := secmsg.New(opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := responder.Start(ctx); err != nil {
		return err
	}

	addr, _ := responder.LocalAddr()
	fmt.Printf("SecMsg 响应器已启动: %s (%s)\n", addr, secmsg.VersionInfo())
	if discAddr, derr := responder.DiscoveryAddr(); derr == nil {
		fmt.Printf("发现监听: %s\n", discAddr)
	}

	// 等待中断信号
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signalCh
	fmt.Printf("\n收到信号 %v，正在关闭...\n", sig)

	return responder.Stop(context.Background())
}
