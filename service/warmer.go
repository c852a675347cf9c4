package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Warmable 可以被定时预热的模型
type Warmable interface {
	Warm(ctx context.Context) error
}

// Warmer 定时重新加载模型，避免推理服务冷启动
type Warmer struct {
	cron    *cron.Cron
	model   Warmable
	timeout time.Duration
	logger  *zap.Logger
}

func NewWarmer(model Warmable, schedule string, timeout time.Duration, logger *zap.Logger) (*Warmer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Warmer{
		cron:    cron.New(),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
	if _, err := w.cron.AddFunc(schedule, w.run); err != nil {
		return nil, fmt.Errorf("warm schedule %q: %w", schedule, err)
	}
	return w, nil
}

func (w *Warmer) run() {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := w.model.Warm(ctx); err != nil {
		w.logger.Warn("model warm-up failed", zap.Error(err))
		return
	}
	w.logger.Debug("model warmed", zap.Duration("cost", time.Since(start)))
}

func (w *Warmer) Start() {
	w.cron.Start()
}

// Stop 停止调度，返回的 context 在运行中的任务结束后关闭
func (w *Warmer) Stop() context.Context {
	return w.cron.Stop()
}
