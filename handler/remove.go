package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/chaos-io/cutout/config"
	"github.com/chaos-io/cutout/matting"
	"github.com/chaos-io/cutout/middleware"
	"github.com/chaos-io/cutout/model"
	"github.com/chaos-io/cutout/service"
	"github.com/chaos-io/cutout/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Remover 去背景服务
type Remover interface {
	Remove(ctx context.Context, req *service.Request) (*service.Result, error)
}

type RemoveHandler struct {
	cfg     *config.UploadConfig
	remover Remover
}

func NewRemoveHandler(cfg *config.UploadConfig, remover Remover) *RemoveHandler {
	return &RemoveHandler{
		cfg:     cfg,
		remover: remover,
	}
}

// Remove 处理去背景请求，成功时直接返回 PNG
func (h *RemoveHandler) Remove(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "No image file provided", err)
		return
	}

	// 验证文件大小
	if file.Size > h.cfg.MaxSize {
		abortWithError(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large (max %dMB)", h.cfg.MaxSize/(1024*1024)), nil)
		return
	}

	// 验证文件类型
	if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
		abortWithError(c, http.StatusUnsupportedMediaType, "Invalid file type", nil)
		return
	}

	req, err := parseOptions(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid parameters", err)
		return
	}

	f, err := file.Open()
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to read image", err)
		return
	}
	defer f.Close()
	if req.Image, err = io.ReadAll(f); err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to read image", err)
		return
	}

	util.Logger.Info("image uploaded",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("filename", file.Filename),
		zap.Int64("size", file.Size))

	res, err := h.remover.Remove(c.Request.Context(), req)
	if err != nil {
		util.Logger.Error("failed to process image",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
		abortWithError(c, statusFor(err), "Failed to process image", err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="removed-bg.png"`)
	// 冷启动时缓存命中，模型尚未加载
	if res.ModelID != "" {
		c.Header("X-Model-Used", res.ModelID)
	}
	c.Header("X-Cache", cacheStatus(res.Cached))
	c.Data(http.StatusOK, "image/png", res.PNG)
}

func parseOptions(c *gin.Context) (*service.Request, error) {
	req := &service.Request{}

	if v := c.PostForm("bg_color"); v != "" {
		bg, err := matting.ParseHex(v)
		if err != nil {
			return nil, fmt.Errorf("bg_color: %w", err)
		}
		req.Background = &bg
	}

	if v := c.PostForm("remove_color"); v != "" {
		key, err := matting.ParseHex(v)
		if err != nil {
			return nil, fmt.Errorf("remove_color: %w", err)
		}
		req.ChromaKey = &key
	}

	if v := c.PostForm("remove_tolerance"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("remove_tolerance %q is not a number", v)
		}
		tol := float64(n)
		req.Tolerance = &tol
	}
	return req, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, matting.ErrInvalidDimensions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, matting.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func cacheStatus(cached bool) string {
	if cached {
		return "HIT"
	}
	return "MISS"
}

func abortWithError(c *gin.Context, status int, message string, err error) {
	resp := model.ErrorResponse{
		Success: false,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, resp)
}
