package router

import (
	"github.com/gin-gonic/gin"

	"svn-migrate/internal/api/handler"
	"svn-migrate/internal/api/middleware"
	"svn-migrate/internal/broadcaster"
	"svn-migrate/internal/engine"
	"svn-migrate/internal/pkg/config"
)

// Setup 设置路由
func Setup(cfg *config.Config, eng *engine.Engine, bc *broadcaster.Broadcaster) *gin.Engine {
	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 初始化Handler
	migrationHandler := handler.NewMigrationHandler(eng)
	queueHandler := handler.NewQueueHandler(eng)
	probeHandler := handler.NewProbeHandler(eng)
	eventHandler := handler.NewEventHandler(bc)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 迁移管理
		migrations := v1.Group("/migrations")
		{
			migrations.POST("", migrationHandler.Register)       // 登记迁移
			migrations.GET("", migrationHandler.List)            // 列表查询
			migrations.POST("/start", migrationHandler.BulkStart) // 批量启动
			migrations.GET("/:id", migrationHandler.Get)         // 获取详情
			migrations.DELETE("/:id", migrationHandler.Delete)   // 删除记录与工作目录
			migrations.POST("/:id/start", migrationHandler.Start)   // 提交到执行队列
			migrations.POST("/:id/stop", migrationHandler.Stop)     // 取消排队/运行中任务
			migrations.POST("/:id/resume", migrationHandler.Resume) // 从断点或从头恢复
			migrations.POST("/:id/sync", migrationHandler.Sync)     // 增量同步
		}

		// 源库探测
		svnGroup := v1.Group("/svn")
		{
			svnGroup.POST("/probe", probeHandler.Probe)         // 连通性探测
			svnGroup.POST("/users", probeHandler.ExtractUsers)  // 枚举历史作者
			svnGroup.POST("/preview", probeHandler.Preview)     // 迁移预演
		}

		// 队列管理
		queueGroup := v1.Group("/queue")
		{
			queueGroup.GET("/status", queueHandler.Status)             // 队列状态总览
			queueGroup.PUT("/concurrency", queueHandler.SetConcurrency) // 调整并发数
			queueGroup.POST("/cleanup", queueHandler.Cleanup)          // 批量清理
		}

		// 事件推送 (SSE)
		v1.GET("/events", eventHandler.Stream)
	}

	return r
}
