package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaos-io/cutout/config"
	"github.com/chaos-io/cutout/handler"
	"github.com/chaos-io/cutout/rembg"
	"github.com/chaos-io/cutout/service"
	"github.com/chaos-io/cutout/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "配置文件路径")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// 加载配置
	cfg, err := config.New(*configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", *configPath, err)
	}

	// 初始化日志
	if err := util.InitLogger(cfg.Server.Mode); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer util.Sync()

	util.Logger.Info("starting cutout server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	backend, err := newBackend(&cfg.Model)
	if err != nil {
		return err
	}
	model := rembg.NewModel(backend, cfg.Model.Variants, util.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 首个请求会重试加载
	initCtx, cancel := context.WithTimeout(ctx, cfg.Model.Timeout)
	if err := model.Init(initCtx); err != nil {
		util.Logger.Warn("model init failed, retrying on first request", zap.Error(err))
	}
	cancel()

	// 初始化Redis
	var cache service.ResultCache
	if cfg.Redis.Enabled {
		redisCache := service.NewRedisCache(&cfg.Redis)
		if err := redisCache.Ping(ctx); err != nil {
			util.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
			_ = redisCache.Close()
		} else {
			util.Logger.Info("redis connected successfully")
			cache = redisCache
			defer redisCache.Close()
		}
	}

	remover, err := service.NewRemoveService(model, service.Options{
		MaxConcurrent:  cfg.Server.MaxConcurrent,
		QueueTimeout:   cfg.Server.QueueTimeout,
		ProcessTimeout: cfg.Server.ProcessTimeout,
		Params:         cfg.Matting.Params(),
		Cache:          cache,
		Logger:         util.Logger,
	})
	if err != nil {
		return err
	}

	warmer, err := service.NewWarmer(model, cfg.Model.WarmSchedule, cfg.Model.Timeout, util.Logger)
	if err != nil {
		return err
	}
	warmer.Start()
	defer warmer.Stop()

	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(
		handler.NewRemoveHandler(&cfg.Upload, remover),
		model,
		handler.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit},
	)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		util.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	util.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newBackend(cfg *config.ModelConfig) (rembg.Backend, error) {
	switch cfg.Backend {
	case "remote":
		return rembg.NewRemoteBackend(cfg.BaseURL, cfg.Timeout), nil
	case "alpha":
		return rembg.NewAlphaBackend(), nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
}
