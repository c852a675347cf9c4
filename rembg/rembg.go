package rembg

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chaos-io/cutout/matting"
	"go.uber.org/zap"
)

// ErrNoModel 所有模型变体都加载失败
var ErrNoModel = errors.New("no model variant could be loaded")

// DefaultVariants 按优先级排列
var DefaultVariants = []string{
	"isnet-general-use", // 细节更好（头发、线缆）
	"RMBG-1.4",          // 稳定的兜底
}

// Segmenter 输出与图像同尺寸的前景概率掩码
type Segmenter interface {
	Segment(ctx context.Context, img *matting.PixelBuffer) (*matting.Mask, error)
}

// Backend 具体的推理后端
type Backend interface {
	Load(ctx context.Context, variant string) error
	// Predict 返回的掩码尺寸可以与输入不同
	Predict(ctx context.Context, variant string, img *matting.PixelBuffer) (*matting.Mask, error)
}

// Model 一次初始化、多次复用的分割模型
//
// 按顺序尝试加载变体，记住第一个成功的；全部失败时下次调用会重新尝试。
type Model struct {
	backend  Backend
	variants []string
	logger   *zap.Logger

	// initMu 串行化加载流程，mu 只保护 loaded，读取方不会等待加载
	initMu sync.Mutex
	mu     sync.RWMutex
	loaded string
}

func NewModel(backend Backend, variants []string, logger *zap.Logger) *Model {
	if len(variants) == 0 {
		variants = DefaultVariants
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Model{
		backend:  backend,
		variants: variants,
		logger:   logger,
	}
}

// Init 加载模型，已加载时直接返回
func (m *Model) Init(ctx context.Context) error {
	if m.ModelID() != "" {
		return nil
	}

	m.initMu.Lock()
	defer m.initMu.Unlock()

	if m.ModelID() != "" {
		return nil
	}

	var errs []error
	for _, variant := range m.variants {
		m.logger.Info("loading model", zap.String("model", variant))
		if err := m.backend.Load(ctx, variant); err != nil {
			m.logger.Warn("failed to load model", zap.String("model", variant), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", variant, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		m.setLoaded(variant)
		m.logger.Info("model loaded", zap.String("model", variant))
		return nil
	}
	return fmt.Errorf("%w: %w", ErrNoModel, errors.Join(errs...))
}

// ModelID 已加载的变体，未加载时为空
func (m *Model) ModelID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

func (m *Model) setLoaded(variant string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = variant
}

// Warm 让后端保持已加载变体常驻，未加载时执行 Init
func (m *Model) Warm(ctx context.Context) error {
	id := m.ModelID()
	if id == "" {
		return m.Init(ctx)
	}
	if err := m.backend.Load(ctx, id); err != nil {
		return fmt.Errorf("warm %s: %w", id, err)
	}
	return nil
}

func (m *Model) Segment(ctx context.Context, img *matting.PixelBuffer) (*matting.Mask, error) {
	if err := m.Init(ctx); err != nil {
		return nil, err
	}

	id := m.ModelID()
	mask, err := m.backend.Predict(ctx, id, img)
	if err != nil {
		return nil, fmt.Errorf("predict with %s: %w", id, err)
	}
	return ResizeMask(mask, img.Width, img.Height), nil
}
