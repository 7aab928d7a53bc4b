package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/opendce/backend/config"
	"github.com/opendce/backend/internal/handler"
)

// Handlers 注册到 /api 下的处理器
type Handlers struct {
	Health     *handler.HealthHandler
	Procedures *handler.ProcedureHandler
	Grids      *handler.GridHandler
	Sections   *handler.SectionHandler
	Tools      *handler.ToolsHandler
}

func Setup(cfg *config.Config, h Handlers) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.MaxMultipartMemory = cfg.MaxUploadBytes()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}))
	// 导出文件本身已压缩
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`/export$`})))

	api := r.Group("/api")
	{
		h.Health.RegisterRoutes(api)
		h.Procedures.RegisterRoutes(api)
		h.Grids.RegisterRoutes(api)
		h.Sections.RegisterRoutes(api)
		h.Tools.RegisterRoutes(api)
	}

	return r
}
