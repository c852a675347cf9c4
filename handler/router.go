package handler

import (
	"net/http"

	"github.com/chaos-io/cutout/middleware"
	"github.com/chaos-io/cutout/model"
	"github.com/gin-gonic/gin"
)

type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// ModelInfo 当前加载的模型
type ModelInfo interface {
	ModelID() string
}

// NewRouter 创建路由
func NewRouter(remove *RemoveHandler, models ModelInfo, info BuildInfo) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	// 健康检查和版本信息
	r.GET("/health", func(c *gin.Context) {
		resp := model.HealthResponse{
			Status:  "ok",
			Version: info.Version,
		}
		if models != nil {
			resp.Model = models.ModelID()
		}
		c.JSON(http.StatusOK, resp)
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, model.VersionResponse{
			Version:   info.Version,
			BuildTime: info.BuildTime,
			GitCommit: info.GitCommit,
		})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/remove", remove.Remove)
	}

	return r
}
