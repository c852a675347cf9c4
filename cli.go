package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/chaos-io/cutout/matting"
	"github.com/chaos-io/cutout/rembg"
	"github.com/chaos-io/cutout/util"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

type cliOptions struct {
	In        string
	Mask      string
	Out       string
	Bg        string
	Key       string
	Tolerance float64
	Threshold int
}

func runCLI(args []string) error {
	var opts cliOptions
	fs := flag.NewFlagSet("cutout", flag.ExitOnError)
	fs.StringVar(&opts.In, "in", "", "输入图片路径或 URL")
	fs.StringVar(&opts.Mask, "mask", "alpha", "掩码来源：alpha 使用图片自带透明通道，否则为灰度掩码文件路径")
	fs.StringVar(&opts.Out, "out", "", "输出路径，默认 ./output/<id>_cutout.png")
	fs.StringVar(&opts.Bg, "bg", "", "背景色 #rrggbb，为空时输出透明 PNG")
	fs.StringVar(&opts.Key, "key", "", "额外抠除的颜色 #rrggbb")
	fs.Float64Var(&opts.Tolerance, "tol", matting.DefaultChromaKeyTolerance, "色键容差 (0-50)")
	fs.IntVar(&opts.Threshold, "threshold", matting.DefaultParams().AlphaThreshold, "alpha 阈值 (0-255)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.In == "" {
		fs.Usage()
		return errors.New("-in is required")
	}

	if err := util.InitLogger("debug"); err != nil {
		return err
	}
	defer util.Sync()

	outPath, err := cutout(context.Background(), opts)
	if err != nil {
		return err
	}
	util.Logger.Info("done", zap.String("output", outPath))
	return nil
}

// cutout 离线处理单张图片，返回输出路径
func cutout(ctx context.Context, opts cliOptions) (string, error) {
	defer util.Trace("cutout")()

	img, err := loadImage(opts.In)
	if err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}
	src := matting.FromImage(img)

	mask, err := loadMask(ctx, opts.Mask, src)
	if err != nil {
		return "", err
	}

	p := matting.DefaultParams()
	p.AlphaThreshold = opts.Threshold
	p.ChromaKeyTolerance = opts.Tolerance
	if opts.Bg != "" {
		bg, err := matting.ParseHex(opts.Bg)
		if err != nil {
			return "", err
		}
		p.Background = &bg
	}
	if opts.Key != "" {
		key, err := matting.ParseHex(opts.Key)
		if err != nil {
			return "", err
		}
		p.ChromaKey = &key
	}

	pl, err := matting.NewPipeline(p, util.Logger)
	if err != nil {
		return "", err
	}
	out, err := pl.Process(src, mask)
	if err != nil {
		return "", err
	}

	outPath := opts.Out
	if outPath == "" {
		outPath = filepath.Join("output", ksuid.New().String()+"_cutout.png")
	}
	if err := util.SaveImage(out.Image(), outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

func loadImage(path string) (image.Image, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return util.DownloadImage(path)
	}
	return util.OpenImage(path)
}

// loadMask alpha 时从原图透明通道取掩码，否则读取灰度掩码文件并缩放到原图尺寸
func loadMask(ctx context.Context, source string, src *matting.PixelBuffer) (*matting.Mask, error) {
	if source == "alpha" {
		if !rembg.HasUsefulAlpha(src) {
			util.Logger.Warn("image has no transparency, the whole image is kept as foreground")
		}
		model := rembg.NewModel(rembg.NewAlphaBackend(), []string{"alpha"}, util.Logger)
		return model.Segment(ctx, src)
	}

	maskImg, err := loadImage(source)
	if err != nil {
		return nil, fmt.Errorf("failed to load mask: %w", err)
	}
	return rembg.ResizeMask(rembg.MaskFromImage(maskImg), src.Width, src.Height), nil
}
