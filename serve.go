package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/appkit/appkit/application"
	"github.com/appkit/appkit/internal/config"
	"github.com/appkit/appkit/internal/logging"
	"github.com/appkit/appkit/internal/todos"
	"github.com/appkit/appkit/internal/version"
)

// shutdownSignals 触发优雅停机。
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// serve 按“配置 → todos 存储 → application.Init → 等待信号”顺序运行服务。
func serve(cfg *config.Config, logger *logrus.Logger, configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()
	return serveContext(ctx, cfg, logger, configPath, nil)
}

// serveContext 在 ctx 结束时优雅停机；ready 非空时在开始监听后收到已初始化的应用。
func serveContext(ctx context.Context, cfg *config.Config, logger *logrus.Logger, configPath string, ready func(*application.Application)) error {
	store, err := todos.OpenStore(cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	doc := todos.Document(version.Version)
	appCfg := application.Config{
		Port:              cfg.ListenPort,
		Host:              cfg.ListenHost,
		AppName:           cfg.AppName,
		IsSecureHTTP:      cfg.SecureHTTP,
		Environment:       cfg.Environment,
		AllowedCorsOrigin: cfg.AllowedOrigins,
		Routes:            todos.Routes(store),
		CustomErrorHandler: func(err error) {
			logger.WithField("action", "request_error").WithError(err).Warn("todos handler failed")
		},
		Logger:       logger,
		BodyLimit:    cfg.BodyLimit,
		NotFoundPage: cfg.NotFoundPage,
		Docs:         &doc,
	}
	if cfg.SecureHTTP {
		appCfg.SecureTransport = application.TLSTransport{CertFile: cfg.TLSCertFile, KeyFile: cfg.TLSKeyFile}
	}

	app, err := application.New(appCfg)
	if err != nil {
		return err
	}

	fields := logging.BaseFields("startup", configPath)
	for key, value := range cfg.LogFields() {
		fields[key] = value
	}
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := app.Init(); err != nil {
		return err
	}
	if ready != nil {
		ready(app)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := app.Wait()
		cancel()
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
		defer cancelShutdown()
		return app.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if timeout := cfg.ShutdownTimeout.DurationValue(); timeout > 0 {
		return timeout
	}
	return 10 * time.Second
}
