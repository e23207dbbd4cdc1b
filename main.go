package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fansqz/js-debugger/breakpoint"
	"github.com/fansqz/js-debugger/config"
	"github.com/fansqz/js-debugger/constants"
	"github.com/fansqz/js-debugger/debugger"
	"github.com/fansqz/js-debugger/document"
	e "github.com/fansqz/js-debugger/error"
	"github.com/fansqz/js-debugger/session"
	"github.com/fansqz/js-debugger/transport"
	"github.com/fansqz/js-debugger/utils"
	"github.com/fansqz/js-debugger/utils/gosync"
	"github.com/fansqz/js-debugger/utils/scheduler"
	"github.com/fansqz/js-debugger/workspace"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
)

// 定义版本号
const Version = "2.0.0"

func main() {
	showVersion := pflag.BoolP("version", "v", false, "Show the version number")
	configPath := pflag.StringP("config", "c", "", "Path of the yaml config file")
	port := pflag.IntP("port", "p", 0, "TCP port to listen on, overrides server.port")
	extension := pflag.StringP("extension", "e", "", "Websocket url of the debugging extension relay, overrides extension.url")
	pflag.Parse()

	// 检查是否需要显示版本信息
	if *showVersion {
		fmt.Printf("Version: %s\n", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config fail, err = %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *extension != "" {
		cfg.Extension.Url = *extension
	}

	//启动日志
	if err = SetupLogger(cfg.Logging); err != nil {
		logrus.Warnf("setup logger fail, log to stderr, err = %v", err)
	}
	defer CloseLogger()

	if err = run(cfg); err != nil {
		logrus.Errorf("debugger exit with error, err = %v", err)
		CloseLogger()
		os.Exit(1)
	}
}

func run(cfg *config.Config) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := scheduler.NewLoop()
	api := transport.NewChromeApi(cfg.TransportOptions(), loop)
	// 扩展暂时不可用时继续启动，连接恢复前会话报告不可用
	if connectErr := api.Connect(ctx); connectErr != nil {
		logrus.Warnf("connect to debugging extension fail, err = %v", connectErr)
	}
	defer func() {
		err = multierr.Append(err, api.Close())
	}()

	var watcher *workspace.Watcher
	if cfg.Workspace.Watch {
		if watcher, err = workspace.NewWatcher(loop); err != nil {
			return err
		}
	}
	a := newApp(cfg, loop, api, watcher)
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	// 监听端口
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return err
	}
	logrus.Infof("started listening at: %s", listener.Addr().String())
	gosync.Go(ctx, func(ctx context.Context) {
		a.serve(ctx, listener)
	})

	runErr := loop.Run(ctx)
	err = multierr.Append(err, listener.Close())
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		err = multierr.Append(err, runErr)
	}
	// 关闭会话需要在事件循环中执行
	a.shutdown()
	return err
}

// app 一个调试器进程中的会话、断点模型以及当前打开的文档
//
// 除了serve以外的方法都只能在事件循环中调用。
type app struct {
	cfg        *config.Config
	loop       *scheduler.Loop
	mapping    *debugger.StaticSourceMapping
	session    *session.Session
	model      *breakpoint.Model
	controller *breakpoint.Controller
	watcher    *workspace.Watcher
	// watched 当前被监听的文件的绝对路径
	watched string
}

func newApp(cfg *config.Config, loop *scheduler.Loop, api debugger.DebuggerApi, watcher *workspace.Watcher) *app {
	s := session.New(utils.NewSessionID(), api, loop)
	model := breakpoint.NewModel()
	if watcher != nil {
		watcher.OnSynced = func(doc *document.Document) {
			logrus.Infof("[Watcher] %s reloaded from disk, %d breakpoints", doc.Path(), len(model.BreakpointsOf(doc.Path())))
		}
	}
	return &app{
		cfg:        cfg,
		loop:       loop,
		mapping:    debugger.NewStaticSourceMapping(cfg.Debugger.BaseUri),
		session:    s,
		model:      model,
		controller: breakpoint.NewController(model, s, loop),
		watcher:    watcher,
	}
}

// serve 为每一个连接创建一个DebugSession
func (a *app) serve(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			logrus.Warnf("Connection failed: %v", err)
			continue
		}
		// Handle multiple client connections concurrently
		gosync.Go(ctx, func(ctx context.Context) {
			handleConnection(ctx, conn, a)
		})
	}
}

// localPath 本地文件在工作区中的路径，以/开头
func (a *app) localPath(path string) string {
	root := a.cfg.Workspace.Root
	if root == "" || !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return "/" + filepath.ToSlash(rel)
}

// absPath localPath的逆映射
func (a *app) absPath(local string) string {
	if local == "" || a.cfg.Workspace.Root == "" {
		return local
	}
	return filepath.Join(a.cfg.Workspace.Root, filepath.FromSlash(local))
}

// remoteUrl launch请求中的program转换为页面地址
func (a *app) remoteUrl(program string) string {
	return a.mapping.GetRemoteSourceUri(a.localPath(program))
}

// openDocument 打开path作为当前文档，文件在磁盘上变化时同步到文档
func (a *app) openDocument(path string) error {
	local := a.localPath(path)
	if local == a.controller.Path() {
		return nil
	}
	if !constants.IsDebuggableFile(path) {
		return fmt.Errorf("%s: %w", path, e.ErrLanguageNotSupported)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc := document.NewDocument(local, string(data))
	a.controller.SetDocument(doc)
	if a.watcher == nil {
		return nil
	}
	if a.watched != "" {
		if err = a.watcher.Unwatch(a.watched); err != nil {
			logrus.Warnf("[openDocument] unwatch %s fail, err = %v", a.watched, err)
		}
	}
	a.watched = path
	return a.watcher.Watch(path, doc)
}

// shutdown 关闭被调试的页面，需要在Run返回后调用
func (a *app) shutdown() {
	a.loop.Post(func() {
		a.controller.Cleanup()
		a.session.Teardown()
	})
	a.loop.Flush()
}

func (a *app) Close() error {
	if a.watcher == nil {
		return nil
	}
	return a.watcher.Close()
}
