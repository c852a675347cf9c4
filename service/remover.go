package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/chaos-io/cutout/matting"
	"github.com/chaos-io/cutout/rembg"
	"github.com/chaos-io/cutout/util"
	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("processing queue is full")
	ErrTimeout   = errors.New("processing timed out")
)

// Request 一次去背景请求
type Request struct {
	Image      []byte
	Background *matting.RGB
	ChromaKey  *matting.RGB
	// Tolerance 为空时使用配置的默认容差
	Tolerance *float64
}

// Result 去背景结果
type Result struct {
	PNG     []byte
	ModelID string
	Width   int
	Height  int
	Cached  bool
}

// ResultCache 结果缓存，未命中时返回 nil, nil
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

type modelIdentifier interface {
	ModelID() string
}

type Options struct {
	MaxConcurrent  int
	QueueTimeout   time.Duration
	ProcessTimeout time.Duration
	Params         matting.Params
	Cache          ResultCache
	Logger         *zap.Logger
}

// RemoveService 负责解码、分割、抠图与编码
type RemoveService struct {
	segmenter      rembg.Segmenter
	cache          ResultCache
	params         matting.Params
	semaphore      chan struct{}
	queueTimeout   time.Duration
	processTimeout time.Duration
	logger         *zap.Logger
}

func NewRemoveService(segmenter rembg.Segmenter, opts Options) (*RemoveService, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &RemoveService{
		segmenter:      segmenter,
		cache:          opts.Cache,
		params:         opts.Params,
		semaphore:      make(chan struct{}, opts.MaxConcurrent),
		queueTimeout:   opts.QueueTimeout,
		processTimeout: opts.ProcessTimeout,
		logger:         opts.Logger,
	}, nil
}

// ModelID 当前使用的模型
func (s *RemoveService) ModelID() string {
	if m, ok := s.segmenter.(modelIdentifier); ok {
		return m.ModelID()
	}
	return ""
}

func (s *RemoveService) paramsFor(req *Request) (matting.Params, error) {
	p := s.params
	p.Background = req.Background
	p.ChromaKey = req.ChromaKey
	if req.Tolerance != nil {
		p.ChromaKeyTolerance = *req.Tolerance
	}
	return p, p.Validate()
}

// cacheKey 图片 MD5 + 影响输出的参数
func cacheKey(data []byte, p matting.Params) string {
	colorOrNone := func(c *matting.RGB) string {
		if c == nil {
			return "none"
		}
		return c.String()
	}
	return fmt.Sprintf("%s:%d:%g:%d:%d:%g:%g:%d:%s:%s:%g",
		util.BytesMD5(data), p.AlphaThreshold, p.GaussianSigma, p.KernelSize,
		p.MinRegionAbsolute, p.MinRegionRatioOfTotal, p.MinRegionRatioOfLargest,
		p.MatteSampleRadius, colorOrNone(p.Background), colorOrNone(p.ChromaKey), p.ChromaKeyTolerance)
}

// Remove 处理一张图片
//
// 超时后正在进行的缓冲区整体丢弃，不返回部分结果。
func (s *RemoveService) Remove(ctx context.Context, req *Request) (*Result, error) {
	params, err := s.paramsFor(req)
	if err != nil {
		return nil, err
	}

	key := cacheKey(req.Image, params)
	if res := s.fromCache(ctx, key); res != nil {
		return res, nil
	}

	if err := s.acquire(ctx); err != nil {
		return nil, err
	}

	if s.processTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.processTimeout)
		defer cancel()
	}

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() { <-s.semaphore }()
		res, err := s.process(ctx, req.Image, params)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		s.toCache(ctx, key, o.res.PNG)
		return o.res, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

// acquire 获取并发槽，排队超过 queueTimeout 返回 ErrQueueFull
func (s *RemoveService) acquire(ctx context.Context) error {
	select {
	case s.semaphore <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(s.queueTimeout)
	defer timer.Stop()
	select {
	case s.semaphore <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrQueueFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RemoveService) process(ctx context.Context, data []byte, params matting.Params) (*Result, error) {
	defer util.Trace("remove background")()

	img, err := util.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	src := matting.FromImage(img)

	s.logger.Info("processing image",
		zap.Int("width", src.Width),
		zap.Int("height", src.Height))

	mask, err := s.segmenter.Segment(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}

	pl, err := matting.NewPipeline(params, s.logger)
	if err != nil {
		return nil, err
	}
	out, err := pl.Process(src, mask)
	if err != nil {
		return nil, err
	}

	encoded, err := util.EncodePNG(out.Image())
	if err != nil {
		return nil, err
	}
	return &Result{
		PNG:     encoded,
		ModelID: s.ModelID(),
		Width:   out.Width,
		Height:  out.Height,
	}, nil
}

func (s *RemoveService) fromCache(ctx context.Context, key string) *Result {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("failed to get cache", zap.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("invalid cached result", zap.String("cache_key", key), zap.Error(err))
		return nil
	}
	s.logger.Info("cache hit", zap.String("cache_key", key))
	return &Result{
		PNG:     data,
		ModelID: s.ModelID(),
		Width:   cfg.Width,
		Height:  cfg.Height,
		Cached:  true,
	}
}

func (s *RemoveService) toCache(ctx context.Context, key string, data []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.logger.Warn("failed to set cache", zap.Error(err))
	}
}
